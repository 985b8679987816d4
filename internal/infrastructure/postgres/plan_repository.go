package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

var _ repository.PlanRepository = (*PlanRepo)(nil)

// PlanRepo implementación del puerto PlanRepository sobre PostgreSQL.
type PlanRepo struct {
	db Querier
}

// NewPlanRepository construye el adaptador de persistencia para planes.
func NewPlanRepository(db Querier) *PlanRepo {
	return &PlanRepo{db: db}
}

// GetByID obtiene un plan por ID.
func (r *PlanRepo) GetByID(ctx context.Context, id string) (*entity.Plan, error) {
	query := `
		SELECT id, name, price, user_limit, created_at, updated_at
		FROM plans WHERE id = $1`
	var p entity.Plan
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.UserLimit, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get plan by id: %w", err)
	}
	return &p, nil
}

// GetModule obtiene la fila de inclusión del módulo en el plan; nil si no existe.
func (r *PlanRepo) GetModule(ctx context.Context, planID, moduleName string) (*entity.PlanModule, error) {
	query := `
		SELECT id, plan_id, module_name, is_included, item_limit, can_create, can_edit, can_delete
		FROM plan_modules WHERE plan_id = $1 AND module_name = $2`
	var pm entity.PlanModule
	err := r.db.QueryRow(ctx, query, planID, moduleName).Scan(
		&pm.ID, &pm.PlanID, &pm.ModuleName, &pm.IsIncluded, &pm.ItemLimit,
		&pm.CanCreate, &pm.CanEdit, &pm.CanDelete,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get plan module %s: %w", moduleName, err)
	}
	return &pm, nil
}

// ListIncludedModules devuelve los módulos incluidos en el plan.
func (r *PlanRepo) ListIncludedModules(ctx context.Context, planID string) ([]string, error) {
	query := `
		SELECT module_name FROM plan_modules
		WHERE plan_id = $1 AND is_included = true
		ORDER BY module_name`
	rows, err := r.db.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("list included modules: %w", err)
	}
	defer rows.Close()

	var modules []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan module name: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}
