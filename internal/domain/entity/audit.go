package entity

import "time"

// Decisiones registradas en auditoría.
const (
	AuditDecisionGranted  = "granted"
	AuditDecisionDenied   = "denied"
	AuditDecisionExecuted = "executed"
	AuditDecisionRefused  = "refused"
)

// AuditLogEntry es el registro append-only de toda decisión que cambia estado:
// suspensiones, compras, validaciones de acceso. Nunca se muta ni se borra.
type AuditLogEntry struct {
	ID        string
	AccountID string
	ActorID   string // "system" para operaciones batch/automáticas
	Action    string // ej. account.suspend, upsell.auto_purchase, module.access
	Decision  string // ver constantes AuditDecision*
	Metadata  map[string]any
	CreatedAt time.Time
}
