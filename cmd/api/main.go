package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tu-usuario/crm-backoffice/internal/application/access"
	"github.com/tu-usuario/crm-backoffice/internal/application/auth"
	"github.com/tu-usuario/crm-backoffice/internal/application/suspension"
	"github.com/tu-usuario/crm-backoffice/internal/application/upsell"
	"github.com/tu-usuario/crm-backoffice/internal/application/usecase"
	"github.com/tu-usuario/crm-backoffice/internal/application/users"
	infrapdf "github.com/tu-usuario/crm-backoffice/internal/infrastructure/pdf"
	"github.com/tu-usuario/crm-backoffice/internal/infrastructure/postgres"
	"github.com/tu-usuario/crm-backoffice/internal/infrastructure/ratelimit"
	infrastripe "github.com/tu-usuario/crm-backoffice/internal/infrastructure/stripe"
	httpRouter "github.com/tu-usuario/crm-backoffice/internal/interfaces/http"
	"github.com/tu-usuario/crm-backoffice/pkg/config"
	"github.com/tu-usuario/crm-backoffice/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Repositorios
	accountRepo := postgres.NewAccountRepository(pool)
	planRepo := postgres.NewPlanRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	permRepo := postgres.NewPermissionRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	purchaseRepo := postgres.NewPurchaseRepository(pool)
	settingsRepo := postgres.NewSettingsRepository(pool)
	usageRepo := postgres.NewUsageRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	txRunner := postgres.NewTxRunner(pool, log)

	// Servicios de aplicación
	suspensionSvc := suspension.NewService(accountRepo, auditRepo, log)
	billingGateway := infrastripe.NewClient(cfg.Stripe.APIKey, cfg.Stripe.BaseURL)
	upsellSvc := upsell.NewService(
		accountRepo, planRepo, productRepo, purchaseRepo, settingsRepo,
		usageRepo, auditRepo, billingGateway, txRunner, log,
	)
	receiptUC := upsell.NewReceiptUseCase(purchaseRepo, productRepo, accountRepo, infrapdf.NewMarotoReceiptGenerator())
	usersSvc := users.NewService(txRunner)
	accessSvc := access.NewService(accountRepo, planRepo, permRepo, usageRepo, auditRepo, log)
	companyUC := usecase.NewCompanyUseCase(companyRepo)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Rate limiter: Redis si hay dirección configurada, memoria si no.
	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter = ratelimit.NewRedisLimiter(rdb, ratelimit.DefaultConfig(), "ratelimit")
		log.Info().Str("addr", cfg.Redis.Addr).Msg("rate limiter distribuido (Redis)")
	} else {
		limiter = ratelimit.NewMemoryLimiter(ratelimit.DefaultConfig())
		log.Info().Msg("rate limiter en memoria")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    cfg.App.Name,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:        authUC,
		Suspension:    suspensionSvc,
		Upsell:        upsellSvc,
		Receipt:       receiptUC,
		Users:         usersSvc,
		UserRepo:      userRepo,
		AuditRepo:     auditRepo,
		Access:        accessSvc,
		CompanyUC:     companyUC,
		Limiter:       limiter,
		Log:           log,
		JWTSecret:     cfg.JWT.Secret,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
