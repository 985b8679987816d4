package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Módulos SaaS disponibles (deben coincidir con el CHECK de la tabla plan_modules).
const (
	ModuleCRM           = "crm"
	ModuleOpportunities = "opportunities"
	ModuleReports       = "reports"
	ModuleAnalytics     = "analytics"
)

// Acciones permisionables sobre un módulo.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Plan representa un plan de suscripción. UserLimit nil = usuarios ilimitados.
type Plan struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	UserLimit *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlanModule representa la inclusión (o exclusión explícita) de un módulo en un plan,
// con el tope de ítems y los permisos por defecto del módulo.
// ItemLimit nil = sin tope. IsIncluded=false significa deshabilitado explícitamente:
// el middleware distingue ese caso de "sin fila" (no contratable sin upgrade).
type PlanModule struct {
	ID         string
	PlanID     string
	ModuleName string // ver constantes Module*
	IsIncluded bool
	ItemLimit  *int
	CanCreate  bool
	CanEdit    bool
	CanDelete  bool
}
