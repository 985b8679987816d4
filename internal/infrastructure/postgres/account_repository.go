package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

// AccountRepo implementación del puerto AccountRepository sobre PostgreSQL.
type AccountRepo struct {
	db Querier
}

// NewAccountRepository construye el adaptador de persistencia para cuentas.
func NewAccountRepository(db Querier) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `
	id, name, plan_id, payment_status, suspended_at, suspension_reason,
	last_payment_failure_at, outstanding_balance, stripe_customer_id,
	stripe_subscription_id, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*entity.Account, error) {
	var a entity.Account
	err := row.Scan(
		&a.ID, &a.Name, &a.PlanID, &a.PaymentStatus, &a.SuspendedAt, &a.SuspensionReason,
		&a.LastPaymentFailureAt, &a.OutstandingBalance, &a.StripeCustomerID,
		&a.StripeSubscriptionID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID obtiene una cuenta por ID.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return account, nil
}

// Update actualiza los campos de estado de pago/suspensión de una cuenta.
func (r *AccountRepo) Update(ctx context.Context, account *entity.Account) error {
	query := `
		UPDATE accounts SET
			name = $2, plan_id = $3, payment_status = $4, suspended_at = $5,
			suspension_reason = $6, last_payment_failure_at = $7,
			outstanding_balance = $8, stripe_customer_id = $9,
			stripe_subscription_id = $10, updated_at = $11
		WHERE id = $1`
	_, err := r.db.Exec(ctx, query,
		account.ID, account.Name, account.PlanID, account.PaymentStatus, account.SuspendedAt,
		account.SuspensionReason, account.LastPaymentFailureAt,
		account.OutstandingBalance, account.StripeCustomerID,
		account.StripeSubscriptionID, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// ListOverdue devuelve las cuentas con fallo de pago registrado y aún no
// suspendidas: las candidatas del barrido de morosidad.
func (r *AccountRepo) ListOverdue(ctx context.Context) ([]*entity.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE last_payment_failure_at IS NOT NULL
		  AND payment_status <> $1
		ORDER BY last_payment_failure_at ASC`
	rows, err := r.db.Query(ctx, query, entity.PaymentStatusSuspended)
	if err != nil {
		return nil, fmt.Errorf("list overdue accounts: %w", err)
	}
	defer rows.Close()

	var list []*entity.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		list = append(list, account)
	}
	return list, rows.Err()
}
