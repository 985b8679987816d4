package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/application/upsell"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
)

// UpsellHandler expone la detección de oportunidades, las compras manual y
// automática y el comprobante de compra en PDF.
type UpsellHandler struct {
	svc     *upsell.Service
	receipt *upsell.ReceiptUseCase
}

// NewUpsellHandler construye el handler de upsell.
func NewUpsellHandler(svc *upsell.Service, receipt *upsell.ReceiptUseCase) *UpsellHandler {
	return &UpsellHandler{svc: svc, receipt: receipt}
}

// ListOpportunities godoc
// @Summary      Oportunidades de upsell de la cuenta
// @Tags         upsell
// @Produce      json
// @Success      200  {array}  dto.Opportunity
// @Router       /api/upsell/opportunities [get]
func (h *UpsellHandler) ListOpportunities(c *fiber.Ctx) error {
	opps, err := h.svc.DetectUpsellOpportunities(c.Context(), GetAccountID(c))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "cuenta no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if opps == nil {
		opps = []dto.Opportunity{}
	}
	return c.JSON(opps)
}

// ListPurchases godoc
// @Summary      Compras registradas de la cuenta
// @Tags         upsell
// @Produce      json
// @Success      200  {array}  dto.PurchaseResponse
// @Router       /api/purchases [get]
func (h *UpsellHandler) ListPurchases(c *fiber.Ctx) error {
	purchases, err := h.svc.ListPurchases(c.Context(), GetAccountID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(purchases)
}

// PurchaseManual godoc
// @Summary      Compra manual de un producto adicional
// @Tags         upsell
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ManualUpsellRequest  true  "product_id, quantity"
// @Success      201   {object}  dto.PurchaseResponse
// @Failure      402   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/upsell/purchase [post]
func (h *UpsellHandler) PurchaseManual(c *fiber.Ctx) error {
	var in dto.ManualUpsellRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.ProductID == "" || in.Quantity < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "product_id y quantity >= 1 son requeridos"})
	}

	out, err := h.svc.ExecuteManualUpsell(c.Context(), GetAccountID(c), in.ProductID, in.Quantity, GetUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto no encontrado"})
		case errors.Is(err, domain.ErrProductInactive):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PRODUCT_INACTIVE", Message: "el producto ya no está disponible"})
		case errors.Is(err, domain.ErrNoSubscription):
			return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Code: "NO_SUBSCRIPTION", Message: "la cuenta no tiene una suscripción activa"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// PurchaseAuto godoc
// @Summary      Ejecutar la compra automática de asientos si los guards lo permiten
// @Tags         upsell
// @Produce      json
// @Success      200  {object}  dto.UpsellResult
// @Router       /api/upsell/auto [post]
func (h *UpsellHandler) PurchaseAuto(c *fiber.Ctx) error {
	out, err := h.svc.ExecuteAutoUpsell(c.Context(), GetAccountID(c), GetUserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrNoSubscription) {
			return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Code: "NO_SUBSCRIPTION", Message: "la cuenta no tiene una suscripción activa"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// GetReceipt godoc
// @Summary      Comprobante de compra en PDF
// @Tags         upsell
// @Produce      application/pdf
// @Param        id  path  string  true  "ID de la compra"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchases/{id}/receipt [get]
func (h *UpsellHandler) GetReceipt(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	pdfBytes, err := h.receipt.GenerateReceipt(c.Context(), GetAccountID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "compra no encontrada"})
		case errors.Is(err, domain.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "la compra pertenece a otra cuenta"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `attachment; filename="comprobante-`+id+`.pdf"`)
	return c.Send(pdfBytes)
}
