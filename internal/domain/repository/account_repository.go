package repository

import (
	"context"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
)

// AccountRepository define el puerto de persistencia para Account (DIP).
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	Update(ctx context.Context, account *entity.Account) error
	// ListOverdue devuelve las cuentas con fecha de fallo de pago registrada
	// y que aún no están suspendidas (candidatas del barrido de morosidad).
	ListOverdue(ctx context.Context) ([]*entity.Account, error)
}

// SettingsRepository define el puerto para la configuración de auto-upgrade.
// Get devuelve nil (sin error) si la cuenta no tiene configuración.
type SettingsRepository interface {
	Get(ctx context.Context, accountID string) (*entity.AutoUpgradeSettings, error)
	Upsert(ctx context.Context, s *entity.AutoUpgradeSettings) error
}
