package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

var _ repository.UsageRepository = (*UsageRepo)(nil)

// UsageRepo implementa los conteos de uso por cuenta.
type UsageRepo struct {
	db Querier
}

// NewUsageRepository construye el adaptador de conteo de uso.
func NewUsageRepository(db Querier) *UsageRepo {
	return &UsageRepo{db: db}
}

// CountActiveUsers cuenta los usuarios activos de la cuenta. Los borrados lógicos
// quedan excluidos por status.
func (r *UsageRepo) CountActiveUsers(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE account_id = $1 AND status = 'active'`,
		accountID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}

// CountModuleItems cuenta las filas de la tabla de respaldo del módulo. Switch
// cerrado sobre consultas fijas: nunca se interpola un identificador en SQL,
// ni siquiera desde un lookup confiable.
func (r *UsageRepo) CountModuleItems(ctx context.Context, accountID, moduleName string) (int, error) {
	var query string
	switch moduleName {
	case entity.ModuleCRM:
		query = `SELECT COUNT(*) FROM companies WHERE account_id = $1`
	case entity.ModuleOpportunities:
		query = `SELECT COUNT(*) FROM opportunities WHERE account_id = $1`
	case entity.ModuleReports, entity.ModuleAnalytics:
		// Módulos sin tabla de respaldo contable: no acumulan uso.
		return 0, nil
	default:
		return 0, fmt.Errorf("módulo sin tabla de conteo: %s", moduleName)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s items: %w", moduleName, err)
	}
	return count, nil
}
