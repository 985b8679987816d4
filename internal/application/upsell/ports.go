package upsell

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

// BillingInfo identificación de la suscripción de la cuenta en el proveedor.
type BillingInfo struct {
	SubscriptionID string
}

// SubscriptionItem resultado de agregar una línea a la suscripción en el proveedor.
type SubscriptionItem struct {
	SubscriptionItemID string
	InvoiceID          string
	ProratedAmount     decimal.Decimal
	IsFirstBilling     bool
}

// BillingGateway es la frontera con el proveedor de facturación. Se trata como
// una llamada externa opaca que puede fallar; el proveedor es la autoridad final
// sobre los cobros. Lo implementa stripe.Client.
type BillingGateway interface {
	// GetBillingInfo resuelve la suscripción activa del cliente en el proveedor.
	GetBillingInfo(ctx context.Context, stripeCustomerID string) (*BillingInfo, error)
	// AddSubscriptionItem agrega una línea con prorrateo a la suscripción.
	AddSubscriptionItem(ctx context.Context, subscriptionID, priceID string, quantity int, prorate bool) (*SubscriptionItem, error)
}

// PurchaseTxRunner ejecuta una función con repos atados a una única transacción:
// la compra nunca queda registrada a medias.
type PurchaseTxRunner interface {
	RunPurchase(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		purchaseRepo repository.PurchaseRepository,
		auditRepo repository.AuditRepository,
	) error) error
}
