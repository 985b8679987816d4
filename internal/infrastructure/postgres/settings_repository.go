package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

// SettingsRepo implementación del puerto SettingsRepository sobre PostgreSQL.
type SettingsRepo struct {
	db Querier
}

// NewSettingsRepository construye el adaptador para la configuración de auto-upgrade.
func NewSettingsRepository(db Querier) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get obtiene la configuración de auto-upgrade de la cuenta; nil si nunca se configuró.
func (r *SettingsRepo) Get(ctx context.Context, accountID string) (*entity.AutoUpgradeSettings, error) {
	query := `
		SELECT account_id, enabled, user_limit_enabled, max_auto_users, max_monthly_auto_charge, updated_at
		FROM auto_upgrade_settings WHERE account_id = $1`
	var s entity.AutoUpgradeSettings
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&s.AccountID, &s.Enabled, &s.UserLimitEnabled, &s.MaxAutoUsers, &s.MaxMonthlyAutoCharge, &s.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auto upgrade settings %s: %w", accountID, err)
	}
	return &s, nil
}

// Upsert crea o reemplaza la configuración de auto-upgrade de la cuenta.
func (r *SettingsRepo) Upsert(ctx context.Context, settings *entity.AutoUpgradeSettings) error {
	query := `
		INSERT INTO auto_upgrade_settings (account_id, enabled, user_limit_enabled, max_auto_users, max_monthly_auto_charge, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			user_limit_enabled = EXCLUDED.user_limit_enabled,
			max_auto_users = EXCLUDED.max_auto_users,
			max_monthly_auto_charge = EXCLUDED.max_monthly_auto_charge,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.Exec(ctx, query,
		settings.AccountID, settings.Enabled, settings.UserLimitEnabled,
		settings.MaxAutoUsers, settings.MaxMonthlyAutoCharge, settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert auto upgrade settings: %w", err)
	}
	return nil
}
