package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/application/suspension"
)

// LocalSuspensionVariant queda en c.Locals cuando la cuenta tiene algún aviso de
// pago (gracia, mora) pero la petición sigue adelante; los handlers pueden
// anexarlo a sus respuestas sin volver a consultar.
const LocalSuspensionVariant = "suspension_variant"

// RequireAccountActive verifica el estado de pago de la cuenta del token antes
// de dejar pasar la petición. Debe usarse DESPUÉS de AuthMiddleware.
//
// Comportamiento:
//   - suspendida o cancelada → 403 con el mensaje según el rol del actor.
//   - en gracia o mora → deja pasar y anota la variante en c.Locals.
//   - error al consultar → 500 ACCOUNT_STATUS_ERROR: ante la duda se bloquea,
//     nunca se asume que la cuenta está al día.
func RequireAccountActive(susp *suspension.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := GetAccountID(c)
		if accountID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "account_id no encontrado en el token",
			})
		}

		msg, err := susp.GetSuspensionMessage(c.Context(), accountID, GetRole(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Code:    "ACCOUNT_STATUS_ERROR",
				Message: "no se pudo verificar el estado de la cuenta",
			})
		}
		if msg == nil {
			// Cuenta al día.
			return c.Next()
		}
		if !msg.CanUseApp {
			code := "ACCOUNT_SUSPENDED"
			if msg.Variant == dto.SuspensionVariantCanceled {
				code = "ACTION_RESTRICTED"
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"code":       code,
				"message":    msg.Message,
				"title":      msg.Title,
				"variant":    msg.Variant,
				"action_url": msg.ActionURL,
			})
		}

		c.Locals(LocalSuspensionVariant, msg.Variant)
		return c.Next()
	}
}
