package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Variantes de mensaje de suspensión.
const (
	SuspensionVariantSuspended = "suspended"
	SuspensionVariantGrace     = "grace_period"
	SuspensionVariantPastDue   = "past_due"
	SuspensionVariantCanceled  = "canceled"
	SuspensionVariantWarning   = "warning"
)

// SuspensionInfo estado de pago derivado de una cuenta.
type SuspensionInfo struct {
	AccountID          string          `json:"account_id"`
	PaymentStatus      string          `json:"payment_status"`
	IsSuspended        bool            `json:"is_suspended"`
	SuspendedAt        *time.Time      `json:"suspended_at,omitempty"`
	SuspensionReason   string          `json:"suspension_reason,omitempty"`
	DaysOverdue        int             `json:"days_overdue"`
	IsInGracePeriod    bool            `json:"is_in_grace_period"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

// SuspensionMessage banner de estado de pago adaptado al rol del usuario.
// Los admins reciben la acción de actualizar el pago; los usuarios regulares
// nunca ven acciones de facturación, solo "contacta a tu administrador".
type SuspensionMessage struct {
	Variant     string `json:"variant"` // ver constantes SuspensionVariant*
	Title       string `json:"title"`
	Message     string `json:"message"`
	CanUseApp   bool   `json:"can_use_app"`
	ActionLabel string `json:"action_label,omitempty"`
	ActionURL   string `json:"action_url,omitempty"`
}

// ActionCheck resultado tipado de una verificación de política: el caller
// ramifica sobre Allowed/Code en vez de manejar una excepción.
type ActionCheck struct {
	Allowed bool   `json:"allowed"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SweepResult resultado del barrido de cuentas morosas. Los fallos por cuenta
// se acumulan en Errors: una fila mala no aborta el lote.
type SweepResult struct {
	Suspended int      `json:"suspended"`
	Warnings  int      `json:"warnings"`
	Errors    []string `json:"errors,omitempty"`
}
