package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/crm-backoffice/internal/application/access"
	"github.com/tu-usuario/crm-backoffice/internal/application/auth"
	"github.com/tu-usuario/crm-backoffice/internal/application/suspension"
	"github.com/tu-usuario/crm-backoffice/internal/application/upsell"
	"github.com/tu-usuario/crm-backoffice/internal/application/usecase"
	"github.com/tu-usuario/crm-backoffice/internal/application/users"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
	"github.com/tu-usuario/crm-backoffice/internal/infrastructure/ratelimit"
	"github.com/tu-usuario/crm-backoffice/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC        *auth.AuthUseCase
	Suspension    *suspension.Service
	Upsell        *upsell.Service
	Receipt       *upsell.ReceiptUseCase
	Users         *users.Service
	UserRepo      repository.UserRepository
	AuditRepo     repository.AuditRepository
	Access        *access.Service
	CompanyUC     *usecase.CompanyUseCase
	Limiter       ratelimit.Limiter
	Log           *logger.Logger
	JWTSecret     string
	WebhookSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Webhooks de facturación (autenticados por secreto compartido, no por JWT)
	webhookHandler := NewWebhookHandler(deps.Suspension, deps.WebhookSecret)
	api.Post("/webhooks/billing", webhookHandler.HandleBillingEvent)

	// Rutas protegidas: Bearer Token + rate limit por actor
	protected := api.Group("/",
		AuthMiddleware(deps.JWTSecret),
		RateLimitMiddleware(deps.Limiter, deps.Log),
	)

	// Estado de la cuenta: consultable incluso suspendida (el cliente necesita
	// el mensaje para renderizar el aviso de pago).
	accountHandler := NewAccountHandler(deps.Suspension, deps.AuditRepo)
	account := protected.Group("/account")
	account.Get("/suspension", accountHandler.GetSuspensionInfo)
	account.Get("/suspension/message", accountHandler.GetSuspensionMessage)
	account.Get("/audit", RequireRole(entity.RoleAdmin), accountHandler.ListAuditLog)
	account.Post("/suspend", RequireRole(entity.RoleSuperAdmin), accountHandler.Suspend)
	account.Post("/reactivate", RequireRole(entity.RoleSuperAdmin), accountHandler.Reactivate)

	// Upsell: consultar oportunidades exige cuenta usable; comprar también.
	active := protected.Group("/", RequireAccountActive(deps.Suspension))
	upsellHandler := NewUpsellHandler(deps.Upsell, deps.Receipt)
	upsellGroup := active.Group("/upsell")
	upsellGroup.Get("/opportunities", upsellHandler.ListOpportunities)
	upsellGroup.Post("/purchase", RequireRole(entity.RoleAdmin), upsellHandler.PurchaseManual)
	upsellGroup.Post("/auto", RequireRole(entity.RoleAdmin), upsellHandler.PurchaseAuto)
	active.Get("/purchases", upsellHandler.ListPurchases)
	active.Get("/purchases/:id/receipt", upsellHandler.GetReceipt)

	// Usuarios: solo admins; el handler aplica además las puertas de estado de
	// pago y tope de usuarios en la creación.
	userHandler := NewUserHandler(deps.Users, deps.Suspension, deps.Upsell, deps.UserRepo)
	usersGroup := active.Group("/users", RequireRole(entity.RoleAdmin))
	usersGroup.Get("/", userHandler.List)
	usersGroup.Post("/", userHandler.Create)
	usersGroup.Put("/:id", userHandler.Update)
	usersGroup.Delete("/:id", userHandler.Delete)
	usersGroup.Put("/:id/permissions", userHandler.ReplacePermissions)

	// CRM: cada ruta pasa por la puerta de acceso por módulo con la acción
	// correspondiente.
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	crm := active.Group("/crm")
	crm.Get("/companies", RequireModuleAccess(entity.ModuleCRM, entity.ActionView, deps.Access), companyHandler.List)
	crm.Get("/companies/:id", RequireModuleAccess(entity.ModuleCRM, entity.ActionView, deps.Access), companyHandler.GetByID)
	crm.Post("/companies", RequireModuleAccess(entity.ModuleCRM, entity.ActionCreate, deps.Access), companyHandler.Create)
}
