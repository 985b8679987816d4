package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

var _ repository.PurchaseRepository = (*PurchaseRepo)(nil)

const purchaseColumns = `id, account_id, product_id, quantity, total,
	auto_purchased, stripe_subscription_item_id, stripe_invoice_id, created_at`

// PurchaseRepo implementación del puerto PurchaseRepository sobre PostgreSQL.
type PurchaseRepo struct {
	db Querier
}

// NewPurchaseRepository construye el adaptador de persistencia para compras.
func NewPurchaseRepository(db Querier) *PurchaseRepo {
	return &PurchaseRepo{db: db}
}

func scanPurchase(row interface{ Scan(dest ...any) error }) (*entity.Purchase, error) {
	var p entity.Purchase
	err := row.Scan(
		&p.ID, &p.AccountID, &p.ProductID, &p.Quantity, &p.Total,
		&p.AutoPurchased, &p.StripeSubscriptionItemID, &p.StripeInvoiceID, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create registra una compra.
func (r *PurchaseRepo) Create(ctx context.Context, purchase *entity.Purchase) error {
	query := `
		INSERT INTO purchases (id, account_id, product_id, quantity, total,
			auto_purchased, stripe_subscription_item_id, stripe_invoice_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		purchase.ID, purchase.AccountID, purchase.ProductID, purchase.Quantity, purchase.Total,
		purchase.AutoPurchased, purchase.StripeSubscriptionItemID, purchase.StripeInvoiceID, purchase.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

// GetByID obtiene una compra; nil si no existe.
func (r *PurchaseRepo) GetByID(ctx context.Context, id string) (*entity.Purchase, error) {
	query := fmt.Sprintf(`SELECT %s FROM purchases WHERE id = $1`, purchaseColumns)
	p, err := scanPurchase(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase %s: %w", id, err)
	}
	return p, nil
}

// ListByAccount lista las compras de la cuenta, más recientes primero.
func (r *PurchaseRepo) ListByAccount(ctx context.Context, accountID string) ([]*entity.Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM purchases WHERE account_id = $1 ORDER BY created_at DESC`, purchaseColumns)
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()
	var list []*entity.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// SumSeatAddons suma los asientos comprados: cantidad × incremento por unidad
// de cada compra de productos tipo user_addon.
func (r *PurchaseRepo) SumSeatAddons(ctx context.Context, accountID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(pu.quantity * pr.unit_increment), 0)
		FROM purchases pu
		JOIN additional_products pr ON pr.id = pu.product_id
		WHERE pu.account_id = $1 AND pr.product_type = $2`
	var total int
	if err := r.db.QueryRow(ctx, query, accountID, entity.ProductTypeUserAddon).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum seat addons: %w", err)
	}
	return total, nil
}

// ListPurchasedModules lista los nombres de módulo ya comprados por la cuenta.
func (r *PurchaseRepo) ListPurchasedModules(ctx context.Context, accountID string) ([]string, error) {
	query := `
		SELECT DISTINCT pr.module_name
		FROM purchases pu
		JOIN additional_products pr ON pr.id = pu.product_id
		WHERE pu.account_id = $1 AND pr.product_type = $2 AND pr.module_name <> ''`
	rows, err := r.db.Query(ctx, query, accountID, entity.ProductTypeModule)
	if err != nil {
		return nil, fmt.Errorf("list purchased modules: %w", err)
	}
	defer rows.Close()
	var modules []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan module name: %w", err)
		}
		modules = append(modules, name)
	}
	return modules, rows.Err()
}

// SumAutoChargesSince suma los totales de compras automáticas desde la fecha dada.
func (r *PurchaseRepo) SumAutoChargesSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(total), 0)
		FROM purchases
		WHERE account_id = $1 AND auto_purchased = true AND created_at >= $2`
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, accountID, since).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum auto charges: %w", err)
	}
	return total, nil
}
