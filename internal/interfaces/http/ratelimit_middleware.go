package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/infrastructure/ratelimit"
	"github.com/tu-usuario/crm-backoffice/pkg/logger"
)

// RateLimitMiddleware limita los chequeos por actor autenticado, o por IP si no
// hay token todavía. Si el limitador falla (Redis caído) la petición pasa: la
// limitación protege del abuso, no es un control de seguridad.
func RateLimitMiddleware(limiter ratelimit.Limiter, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := GetUserID(c)
		if key == "" {
			key = "ip:" + c.IP()
		}

		allowed, err := limiter.Allow(c.Context(), key)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter no disponible, dejando pasar")
			return c.Next()
		}
		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "demasiadas peticiones, intenta de nuevo en un momento",
			})
		}
		return c.Next()
	}
}
