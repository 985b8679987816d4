package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, name, product_type, module_name, price, currency,
	stripe_price_id, unit_increment, is_active, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL.
type ProductRepo struct {
	db Querier
}

// NewProductRepository construye el adaptador de persistencia para productos adicionales.
func NewProductRepository(db Querier) *ProductRepo {
	return &ProductRepo{db: db}
}

func scanProduct(row interface{ Scan(dest ...any) error }) (*entity.AdditionalProduct, error) {
	var p entity.AdditionalProduct
	err := row.Scan(
		&p.ID, &p.Name, &p.Type, &p.ModuleName, &p.Price, &p.Currency,
		&p.StripePriceID, &p.UnitIncrement, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID obtiene un producto; nil si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.AdditionalProduct, error) {
	query := fmt.Sprintf(`SELECT %s FROM additional_products WHERE id = $1`, productColumns)
	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// ListActiveByType lista productos activos del tipo dado, del más barato al más caro.
func (r *ProductRepo) ListActiveByType(ctx context.Context, productType string) ([]*entity.AdditionalProduct, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM additional_products
		WHERE product_type = $1 AND is_active = true
		ORDER BY price ASC`, productColumns)
	rows, err := r.db.Query(ctx, query, productType)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.AdditionalProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
