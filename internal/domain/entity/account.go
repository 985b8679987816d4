package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de pago válidos para Account (deben coincidir con el CHECK de la tabla accounts).
// Máquina de estados: active ⇄ past_due → suspended ⇄ active; active/past_due → canceled.
const (
	PaymentStatusActive    = "active"
	PaymentStatusPastDue   = "past_due"
	PaymentStatusCanceled  = "canceled"
	PaymentStatusSuspended = "suspended"
)

// Account representa una cuenta de negocio/tenant del sistema (multi-tenant).
// Invariante: SuspendedAt != nil ⇔ PaymentStatus == suspended.
// Las cuentas nunca se eliminan físicamente; solo cambian de estado.
type Account struct {
	ID                   string
	Name                 string
	PlanID               string
	PaymentStatus        string // ver constantes PaymentStatus*
	SuspendedAt          *time.Time
	SuspensionReason     string
	LastPaymentFailureAt *time.Time
	OutstandingBalance   decimal.Decimal
	StripeCustomerID     string
	StripeSubscriptionID string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsSuspended informa si la cuenta está suspendida.
func (a *Account) IsSuspended() bool {
	return a.PaymentStatus == PaymentStatusSuspended
}

// AutoUpgradeSettings configura el auto-upgrade de una cuenta: permite al sistema
// ejecutar compras de capacidad sin confirmación humana, dentro de los topes configurados.
type AutoUpgradeSettings struct {
	AccountID            string
	Enabled              bool
	UserLimitEnabled     bool
	MaxAutoUsers         int
	MaxMonthlyAutoCharge decimal.Decimal
	UpdatedAt            time.Time
}
