package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/crm-backoffice/internal/application/access"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
)

// RequireModuleAccess devuelve un middleware Fiber que evalúa la puerta de
// acceso por módulo para el actor del token: inclusión en el plan, permiso del
// usuario y tope de uso. Debe usarse DESPUÉS de AuthMiddleware.
//
// Comportamiento:
//   - 403 Forbidden → módulo no incluido, deshabilitado, sin permiso o tope alcanzado.
//   - 500 Internal  → no se pudo evaluar (la puerta deniega ante errores internos).
func RequireModuleAccess(module, action string, gate *access.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := GetAccountID(c)
		if accountID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "account_id no encontrado en el token",
			})
		}

		decision := gate.CheckModuleAccess(c.Context(), access.Request{
			AccountID: accountID,
			UserID:    GetUserID(c),
			Role:      GetRole(c),
			Module:    module,
			Action:    action,
		})
		if decision.Allowed {
			return c.Next()
		}

		switch decision.Code {
		case access.CodePermissionCheckError:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Code:    decision.Code,
				Message: decision.Message,
			})
		case access.CodeUsageLimitExceeded:
			return c.Status(fiber.StatusForbidden).JSON(dto.LimitErrorResponse{
				Code:         decision.Code,
				Message:      decision.Message,
				CurrentCount: decision.CurrentCount,
				Limit:        decision.Limit,
			})
		default:
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    decision.Code,
				Message: decision.Message,
			})
		}
	}
}
