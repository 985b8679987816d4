package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de producto adicional (deben coincidir con el CHECK de additional_products).
const (
	ProductTypeUserAddon = "user_addon"
	ProductTypeModule    = "module"
	ProductTypeStorage   = "storage"
)

// AdditionalProduct representa un add-on comprable: cupos de usuario, un módulo
// no incluido en el plan, o almacenamiento extra.
// UnitIncrement es cuántas unidades (ej. asientos) aporta cada unidad comprada.
// StripePriceID referencia el precio en el proveedor de facturación, que es la
// autoridad final sobre el cobro.
type AdditionalProduct struct {
	ID            string
	Name          string
	Type          string // ver constantes ProductType*
	ModuleName    string // solo para Type == module
	Price         decimal.Decimal
	Currency      string
	StripePriceID string
	UnitIncrement int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SeatsFor devuelve cuántos asientos aporta una compra de quantity unidades.
func (p *AdditionalProduct) SeatsFor(quantity int) int {
	inc := p.UnitIncrement
	if inc <= 0 {
		inc = 1
	}
	return quantity * inc
}

// Purchase registra una compra de un AdditionalProduct por una cuenta.
// AutoPurchased distingue el upsell automático del manual.
// Los IDs de Stripe se persisten en la misma transacción que la fila: nunca debe
// existir una compra sin su contraparte en el proveedor.
type Purchase struct {
	ID                       string
	AccountID                string
	ProductID                string
	Quantity                 int
	Total                    decimal.Decimal
	AutoPurchased            bool
	StripeSubscriptionItemID string
	StripeInvoiceID          string
	CreatedAt                time.Time
}
