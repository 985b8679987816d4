package http

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/application/suspension"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
)

// WebhookHandler recibe los eventos del proveedor de facturación. El proveedor
// mueve el estado de pago de la cuenta; la suspensión definitiva la decide el
// barrido de morosos según su propio calendario.
type WebhookHandler struct {
	susp   *suspension.Service
	secret string
}

// NewWebhookHandler construye el handler de webhooks. secret es el token
// compartido que el proveedor envía en el header X-Webhook-Secret.
func NewWebhookHandler(susp *suspension.Service, secret string) *WebhookHandler {
	return &WebhookHandler{susp: susp, secret: secret}
}

// HandleBillingEvent godoc
// @Summary      Evento de facturación (webhook)
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BillingWebhookRequest  true  "evento"
// @Success      204   "procesado"
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/webhooks/billing [post]
func (h *WebhookHandler) HandleBillingEvent(c *fiber.Ctx) error {
	if subtle.ConstantTimeCompare([]byte(c.Get("X-Webhook-Secret")), []byte(h.secret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "firma de webhook inválida"})
	}

	var in dto.BillingWebhookRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.AccountID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "account_id es requerido"})
	}

	var err error
	switch in.Type {
	case dto.WebhookPaymentFailed:
		err = h.susp.MarkPaymentFailed(c.Context(), in.AccountID, in.Amount)
	case dto.WebhookPaymentSucceeded:
		err = h.susp.MarkPaymentSucceeded(c.Context(), in.AccountID)
	case dto.WebhookSubscriptionCanceled:
		err = h.susp.MarkCanceled(c.Context(), in.AccountID)
	default:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "UNKNOWN_EVENT", Message: "tipo de evento no soportado: " + in.Type})
	}
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "cuenta no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
