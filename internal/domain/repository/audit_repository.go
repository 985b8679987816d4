package repository

import (
	"context"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
)

// AuditRepository define el puerto del registro de auditoría append-only.
// Append es síncrono: toda decisión que cambia estado se registra exactamente
// una vez antes de devolver control al caller.
type AuditRepository interface {
	Append(ctx context.Context, e *entity.AuditLogEntry) error
	// ListByAccount lista las entradas de la cuenta, más recientes primero.
	// limit <= 0 aplica el tope por defecto de la implementación.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*entity.AuditLogEntry, error)
}
