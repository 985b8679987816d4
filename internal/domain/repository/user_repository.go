package repository

import (
	"context"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
// GetForUpdate solo tiene efecto de bloqueo cuando el repositorio está atado a
// una transacción (ver postgres.TxRunner).
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetForUpdate lee la fila con SELECT ... FOR UPDATE: dos mutaciones
	// concurrentes sobre el mismo usuario se serializan por el lock de la DB.
	GetForUpdate(ctx context.Context, id string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *entity.User) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*entity.User, error)
}

// PermissionRepository define el puerto de persistencia para UserPermission.
type PermissionRepository interface {
	GetByUserAndModule(ctx context.Context, userID, moduleName string) (*entity.UserPermission, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.UserPermission, error)
	DeleteByUser(ctx context.Context, userID string) error
	BulkInsert(ctx context.Context, perms []*entity.UserPermission) error
}
