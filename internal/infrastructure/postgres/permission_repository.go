package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

var _ repository.PermissionRepository = (*PermissionRepo)(nil)

// PermissionRepo implementación del puerto PermissionRepository sobre PostgreSQL.
type PermissionRepo struct {
	db Querier
}

// NewPermissionRepository construye el adaptador de persistencia para permisos.
func NewPermissionRepository(db Querier) *PermissionRepo {
	return &PermissionRepo{db: db}
}

// GetByUserAndModule obtiene el override de permisos del usuario para el módulo;
// nil si no hay fila (aplica el default del rol).
func (r *PermissionRepo) GetByUserAndModule(ctx context.Context, userID, moduleName string) (*entity.UserPermission, error) {
	query := `
		SELECT id, user_id, module_name, can_view, can_create, can_edit, can_delete
		FROM user_permissions WHERE user_id = $1 AND module_name = $2`
	var p entity.UserPermission
	err := r.db.QueryRow(ctx, query, userID, moduleName).Scan(
		&p.ID, &p.UserID, &p.ModuleName, &p.CanView, &p.CanCreate, &p.CanEdit, &p.CanDelete,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get permission %s/%s: %w", userID, moduleName, err)
	}
	return &p, nil
}

// ListByUser lista los permisos del usuario.
func (r *PermissionRepo) ListByUser(ctx context.Context, userID string) ([]*entity.UserPermission, error) {
	query := `
		SELECT id, user_id, module_name, can_view, can_create, can_edit, can_delete
		FROM user_permissions WHERE user_id = $1 ORDER BY module_name`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()
	var list []*entity.UserPermission
	for rows.Next() {
		var p entity.UserPermission
		if err := rows.Scan(&p.ID, &p.UserID, &p.ModuleName, &p.CanView, &p.CanCreate, &p.CanEdit, &p.CanDelete); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// DeleteByUser elimina todos los permisos del usuario (fase 1 del reemplazo total).
func (r *PermissionRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete permissions: %w", err)
	}
	return nil
}

// BulkInsert inserta el set nuevo de permisos (fase 2 del reemplazo total).
func (r *PermissionRepo) BulkInsert(ctx context.Context, perms []*entity.UserPermission) error {
	query := `
		INSERT INTO user_permissions (id, user_id, module_name, can_view, can_create, can_edit, can_delete)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, p := range perms {
		if _, err := r.db.Exec(ctx, query, p.ID, p.UserID, p.ModuleName, p.CanView, p.CanCreate, p.CanEdit, p.CanDelete); err != nil {
			return fmt.Errorf("insert permission %s/%s: %w", p.UserID, p.ModuleName, err)
		}
	}
	return nil
}
