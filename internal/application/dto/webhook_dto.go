package dto

import "github.com/shopspring/decimal"

// Eventos aceptados por el webhook de facturación.
const (
	WebhookPaymentFailed        = "payment_failed"
	WebhookPaymentSucceeded     = "payment_succeeded"
	WebhookSubscriptionCanceled = "subscription_canceled"
)

// BillingWebhookRequest evento entrante del proveedor de facturación. El proveedor
// es quien mueve la cuenta a past_due/canceled; la suspensión la decide el barrido.
type BillingWebhookRequest struct {
	Type      string          `json:"type" validate:"required"`
	AccountID string          `json:"account_id" validate:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"`
}
