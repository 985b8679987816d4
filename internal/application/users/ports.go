package users

import (
	"context"

	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

// UserTxRunner ejecuta una función con repos de usuarios, permisos y auditoría
// atados a una única transacción PostgreSQL. El runner hace Commit o Rollback;
// los callers nunca manejan commits parciales.
type UserTxRunner interface {
	RunUser(ctx context.Context, fn func(
		userRepo repository.UserRepository,
		permRepo repository.PermissionRepository,
		auditRepo repository.AuditRepository,
	) error) error
}
