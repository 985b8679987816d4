package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/application/suspension"
	"github.com/tu-usuario/crm-backoffice/internal/application/upsell"
	"github.com/tu-usuario/crm-backoffice/internal/application/users"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

// UserHandler maneja el ciclo de vida de usuarios de la cuenta. Crear pasa por
// dos puertas: el estado de pago de la cuenta y el tope de usuarios del plan
// (con auto-upgrade si la cuenta lo tiene habilitado).
type UserHandler struct {
	users    *users.Service
	susp     *suspension.Service
	upsell   *upsell.Service
	userRepo repository.UserRepository
}

// NewUserHandler construye el handler de usuarios.
func NewUserHandler(usersSvc *users.Service, susp *suspension.Service, upsellSvc *upsell.Service, userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{users: usersSvc, susp: susp, upsell: upsellSvc, userRepo: userRepo}
}

// sameAccountValidator exige que el usuario objetivo pertenezca a la cuenta del
// actor y que el actor no opere sobre alguien de rol superior.
func sameAccountValidator(accountID, actorRole string) users.ValidateFn {
	return func(u *entity.User) error {
		if u.AccountID != accountID {
			return domain.ErrForbidden
		}
		if entity.RoleLevel(actorRole) < entity.RoleLevel(u.Role) {
			return domain.ErrForbidden
		}
		return nil
	}
}

// Create godoc
// @Summary      Crear usuario
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateUserRequest  true  "datos del usuario"
// @Success      201   {object}  dto.UserResponse
// @Failure      403   {object}  dto.UserLimitResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/users [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateUserRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Email == "" || in.Password == "" || in.Name == "" || in.Role == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email, password, name y role son requeridos"})
	}
	if len(in.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "password debe tener al menos 8 caracteres"})
	}
	if entity.RoleLevel(in.Role) == 0 || in.Role == entity.RoleSuperAdmin {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "role debe ser admin o user"})
	}

	accountID := GetAccountID(c)
	actorID := GetUserID(c)

	// Puerta 1: estado de pago de la cuenta.
	if check := h.susp.CanPerformAction(c.Context(), accountID, suspension.ActionCreateUser); !check.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: check.Code, Message: check.Reason})
	}

	// Puerta 2: tope de usuarios del plan, con auto-upgrade si hay margen.
	check, err := h.upsell.ValidateUserCreation(c.Context(), accountID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	allowed := check.Allowed
	if !allowed && check.AutoUpgradeAvailable {
		// Intento de auto-upgrade: si la compra se concreta, la creación continúa.
		result, upErr := h.upsell.ExecuteAutoUpsell(c.Context(), accountID, actorID)
		allowed = upErr == nil && result.Executed
	}
	if !allowed {
		return c.Status(fiber.StatusForbidden).JSON(dto.UserLimitResponse{
			Code:                 "USER_LIMIT_REACHED",
			Message:              check.Message,
			CurrentCount:         check.CurrentCount,
			Limit:                check.Limit,
			AutoUpgradeAvailable: check.AutoUpgradeAvailable,
		})
	}

	out, err := h.users.CreateUserAtomic(c.Context(), users.CreateUserInput{
		AccountID: accountID,
		Email:     in.Email,
		Password:  in.Password,
		Name:      in.Name,
		Role:      in.Role,
	}, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "EMAIL_EXISTS", Message: "el email ya está registrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Actualizar usuario (solo campos de la lista blanca)
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del usuario"
// @Param        body  body  dto.UpdateUserRequest  true  "campos a actualizar"
// @Success      200   {object}  dto.UserResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/users/{id} [put]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	var in dto.UpdateUserRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	out, err := h.users.UpdateUserAtomic(c.Context(), id, users.UserUpdates{
		Name:   in.Name,
		Role:   in.Role,
		Status: in.Status,
	}, sameAccountValidator(GetAccountID(c), GetRole(c)), GetUserID(c))
	if err != nil {
		return h.mapUserError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Borrado lógico de usuario (libera el email)
// @Tags         users
// @Produce      json
// @Param        id  path  string  true  "ID del usuario"
// @Success      204  "borrado"
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == GetUserID(c) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "no puedes borrar tu propio usuario"})
	}
	err := h.users.DeleteUserAtomic(c.Context(), id, sameAccountValidator(GetAccountID(c), GetRole(c)), GetUserID(c))
	if err != nil {
		return h.mapUserError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReplacePermissions godoc
// @Summary      Reemplazo completo de los permisos por módulo de un usuario
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del usuario"
// @Param        body  body  dto.ReplacePermissionsRequest  true  "set completo de permisos"
// @Success      204   "reemplazados"
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/users/{id}/permissions [put]
func (h *UserHandler) ReplacePermissions(c *fiber.Ctx) error {
	id := c.Params("id")
	var in dto.ReplacePermissionsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Permissions == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "permissions es requerido (lista vacía = sin permisos)"})
	}

	err := h.users.ReplaceUserPermissionsAtomic(c.Context(), id, in.Permissions, sameAccountValidator(GetAccountID(c), GetRole(c)), GetUserID(c))
	if err != nil {
		return h.mapUserError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// List godoc
// @Summary      Listar usuarios de la cuenta
// @Tags         users
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200  {array}  dto.UserResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	list, err := h.userRepo.ListByAccount(c.Context(), GetAccountID(c), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]dto.UserResponse, 0, len(list))
	for _, u := range list {
		out = append(out, dto.UserResponse{
			ID:        u.ID,
			AccountID: u.AccountID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      u.Role,
			Status:    u.Status,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		})
	}
	return c.JSON(out)
}

func (h *UserHandler) mapUserError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "usuario no encontrado"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "no puedes operar sobre ese usuario"})
	case errors.Is(err, domain.ErrValidationFailed):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "VALIDATION_FAILED", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
