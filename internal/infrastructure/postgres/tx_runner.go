package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/crm-backoffice/internal/application/upsell"
	"github.com/tu-usuario/crm-backoffice/internal/application/users"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
	"github.com/tu-usuario/crm-backoffice/pkg/logger"
)

// Ensure TxRunner implements users.UserTxRunner and upsell.PurchaseTxRunner.
var _ users.UserTxRunner = (*TxRunner)(nil)
var _ upsell.PurchaseTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL y registra
// cada fase (begin, commit, rollback) en el log operativo.
type TxRunner struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, log *logger.Logger) *TxRunner {
	return &TxRunner{pool: pool, log: log}
}

// RunUser inicia una transacción con repos de usuarios, permisos y auditoría
// (mutaciones atómicas de usuarios) y hace Commit o Rollback.
func (r *TxRunner) RunUser(ctx context.Context, fn func(
	userRepo repository.UserRepository,
	permRepo repository.PermissionRepository,
	auditRepo repository.AuditRepository,
) error) error {
	return r.run(ctx, "user", func(q Querier) error {
		return fn(NewUserRepository(q), NewPermissionRepository(q), NewAuditRepository(q))
	})
}

// RunPurchase inicia una transacción con repos de productos, compras y auditoría
// (ejecución de upsells) y hace Commit o Rollback.
func (r *TxRunner) RunPurchase(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	purchaseRepo repository.PurchaseRepository,
	auditRepo repository.AuditRepository,
) error) error {
	return r.run(ctx, "purchase", func(q Querier) error {
		return fn(NewProductRepository(q), NewPurchaseRepository(q), NewAuditRepository(q))
	})
}

func (r *TxRunner) run(ctx context.Context, scope string, fn func(q Querier) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	r.log.Debug().Str("scope", scope).Msg("transacción iniciada")
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		r.log.Warn().Str("scope", scope).Err(err).Msg("transacción revertida")
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		r.log.Error().Str("scope", scope).Err(err).Msg("commit de transacción falló")
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.log.Debug().Str("scope", scope).Msg("transacción confirmada")
	return nil
}
