package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para AdditionalProduct.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.AdditionalProduct, error)
	// ListActiveByType devuelve los productos activos del tipo dado, ordenados por
	// precio ascendente (el upsell propone siempre el más barato primero).
	ListActiveByType(ctx context.Context, productType string) ([]*entity.AdditionalProduct, error)
}

// PurchaseRepository define el puerto de persistencia para Purchase.
type PurchaseRepository interface {
	Create(ctx context.Context, p *entity.Purchase) error
	GetByID(ctx context.Context, id string) (*entity.Purchase, error)
	// ListByAccount lista las compras de la cuenta, más recientes primero.
	ListByAccount(ctx context.Context, accountID string) ([]*entity.Purchase, error)
	// SumSeatAddons suma los asientos aportados por compras activas de tipo
	// user_addon (quantity * unit_increment del producto).
	SumSeatAddons(ctx context.Context, accountID string) (int, error)
	// ListPurchasedModules devuelve los module_name de productos tipo module ya
	// comprados por la cuenta.
	ListPurchasedModules(ctx context.Context, accountID string) ([]string, error)
	// SumAutoChargesSince suma el total de compras automáticas desde la fecha dada
	// (tope mensual de auto-upgrade).
	SumAutoChargesSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error)
}
