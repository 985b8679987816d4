package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/application/suspension"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

// AccountHandler expone el estado de suspensión de la cuenta, las operaciones
// administrativas de suspender y reactivar, y la consulta del registro de auditoría.
type AccountHandler struct {
	susp  *suspension.Service
	audit repository.AuditRepository
}

// NewAccountHandler construye el handler de cuenta.
func NewAccountHandler(susp *suspension.Service, audit repository.AuditRepository) *AccountHandler {
	return &AccountHandler{susp: susp, audit: audit}
}

// ListAuditLog godoc
// @Summary      Registro de auditoría de la cuenta
// @Tags         account
// @Produce      json
// @Param        limit  query  int  false  "Límite"  default(100)
// @Success      200  {array}  dto.AuditEntryResponse
// @Router       /api/account/audit [get]
func (h *AccountHandler) ListAuditLog(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	entries, err := h.audit.ListByAccount(c.Context(), GetAccountID(c), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntryResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			Action:    e.Action,
			Decision:  e.Decision,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(out)
}

// GetSuspensionInfo godoc
// @Summary      Estado de pago de la cuenta
// @Tags         account
// @Produce      json
// @Success      200  {object}  dto.SuspensionInfo
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/account/suspension [get]
func (h *AccountHandler) GetSuspensionInfo(c *fiber.Ctx) error {
	info, err := h.susp.GetSuspensionInfo(c.Context(), GetAccountID(c))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "cuenta no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(info)
}

// GetSuspensionMessage godoc
// @Summary      Mensaje de suspensión según el rol del actor
// @Tags         account
// @Produce      json
// @Success      200  {object}  dto.SuspensionMessage
// @Success      204  "cuenta al día, sin mensaje"
// @Router       /api/account/suspension/message [get]
func (h *AccountHandler) GetSuspensionMessage(c *fiber.Ctx) error {
	msg, err := h.susp.GetSuspensionMessage(c.Context(), GetAccountID(c), GetRole(c))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "cuenta no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if msg == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(msg)
}

// suspendRequest cuerpo para suspender manualmente.
type suspendRequest struct {
	Reason string `json:"reason"`
}

// Suspend godoc
// @Summary      Suspender la cuenta (solo superadmin)
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        body  body  suspendRequest  true  "motivo"
// @Success      204   "suspendida"
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/account/suspend [post]
func (h *AccountHandler) Suspend(c *fiber.Ctx) error {
	var in suspendRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Reason == "" {
		in.Reason = "suspensión manual"
	}
	if err := h.susp.SuspendAccount(c.Context(), GetAccountID(c), in.Reason, GetUserID(c)); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "cuenta no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Reactivate godoc
// @Summary      Reactivar la cuenta tras regularizar el pago (solo superadmin)
// @Tags         account
// @Produce      json
// @Success      204  "reactivada"
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/account/reactivate [post]
func (h *AccountHandler) Reactivate(c *fiber.Ctx) error {
	if err := h.susp.ReactivateAccount(c.Context(), GetAccountID(c), GetUserID(c)); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "cuenta no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
