package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tu-usuario/crm-backoffice/internal/application/suspension"
	"github.com/tu-usuario/crm-backoffice/internal/infrastructure/postgres"
	"github.com/tu-usuario/crm-backoffice/pkg/config"
	"github.com/tu-usuario/crm-backoffice/pkg/logger"
)

// Sweeper: barrido diario de cuentas morosas. Las cuentas con el primer fallo
// de pago hace 7+ días se suspenden; las que llevan 3+ días quedan contadas
// como avisos. Se puede correr una sola vez con --run-once (útil en cron de
// plataforma o para backfill manual).
var runOnce = flag.Bool("run-once", false, "ejecutar un barrido y salir")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	accountRepo := postgres.NewAccountRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	suspensionSvc := suspension.NewService(accountRepo, auditRepo, log)

	if *runOnce {
		if err := sweep(ctx, suspensionSvc, log); err != nil {
			log.Fatal().Err(err).Msg("barrido fallido")
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Suspension.SweepSchedule, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := sweep(sweepCtx, suspensionSvc, log); err != nil {
			log.Error().Err(err).Msg("barrido fallido")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Suspension.SweepSchedule).Msg("expresión cron inválida")
	}

	c.Start()
	log.Info().Str("schedule", cfg.Suspension.SweepSchedule).Msg("sweeper iniciado")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopCtx := c.Stop()
	<-stopCtx.Done()
	log.Info().Msg("sweeper detenido")
}

func sweep(ctx context.Context, svc *suspension.Service, log *logger.Logger) error {
	result, err := svc.ProcessOverdueAccounts(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Int("suspended", result.Suspended).
		Int("warnings", result.Warnings).
		Int("errors", len(result.Errors)).
		Msg("barrido de morosidad completado")
	for _, e := range result.Errors {
		log.Warn().Str("detail", e).Msg("cuenta con error en el barrido")
	}
	return nil
}
