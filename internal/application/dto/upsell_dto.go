package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de oportunidad de upsell.
const (
	OpportunityUserLimit = "user_limit"
	OpportunityModule    = "module"
)

// Opportunity una oportunidad de upsell detectada: la cuenta alcanzó un tope o
// existe un módulo contratable fuera de su plan.
type Opportunity struct {
	Type              string          `json:"type"` // user_limit | module
	ProductID         string          `json:"product_id"`
	ProductName       string          `json:"product_name"`
	ModuleName        string          `json:"module_name,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Currency          string          `json:"currency"`
	SuggestedQuantity int             `json:"suggested_quantity"`
	CurrentCount      int             `json:"current_count,omitempty"`
	Limit             int             `json:"limit,omitempty"`
	Reason            string          `json:"reason"`
}

// PurchaseResponse salida de una compra registrada.
type PurchaseResponse struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	ProductID      string          `json:"product_id"`
	Quantity       int             `json:"quantity"`
	Total          decimal.Decimal `json:"total"`
	AutoPurchased  bool            `json:"auto_purchased"`
	InvoiceID      string          `json:"invoice_id,omitempty"`
	ProratedAmount decimal.Decimal `json:"prorated_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// UpsellResult resultado de ExecuteAutoUpsell: Executed=false con Reason cuando
// algún guard lo rechaza (deshabilitado, tope de usuarios, tope de cargo mensual).
type UpsellResult struct {
	Executed bool              `json:"executed"`
	Reason   string            `json:"reason,omitempty"`
	Purchase *PurchaseResponse `json:"purchase,omitempty"`
}

// UserCreationCheck puerta previa a crear un usuario: cuando se alcanzó el tope
// reporta si existe margen de auto-upgrade para ofrecer el autoservicio en vez
// de un bloqueo duro.
type UserCreationCheck struct {
	Allowed              bool   `json:"allowed"`
	CurrentCount         int    `json:"current_count"`
	Limit                int    `json:"limit"` // 0 = ilimitado
	Message              string `json:"message,omitempty"`
	AutoUpgradeAvailable bool   `json:"auto_upgrade_available"`
}

// ManualUpsellRequest entrada para una compra manual.
type ManualUpsellRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}
