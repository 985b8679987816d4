package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo implementación del puerto AuditRepository sobre PostgreSQL.
// La tabla audit_log es de solo inserción; nunca se actualiza ni borra.
type AuditRepo struct {
	db Querier
}

// NewAuditRepository construye el adaptador de persistencia para la auditoría.
func NewAuditRepository(db Querier) *AuditRepo {
	return &AuditRepo{db: db}
}

// Append registra una entrada de auditoría con su metadata serializada como JSONB.
func (r *AuditRepo) Append(ctx context.Context, entry *entity.AuditLogEntry) error {
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	query := `
		INSERT INTO audit_log (id, account_id, actor_id, action, decision, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.db.Exec(ctx, query,
		entry.ID, entry.AccountID, entry.ActorID, entry.Action, entry.Decision, meta, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByAccount lista las entradas de la cuenta, más recientes primero.
func (r *AuditRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]*entity.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, account_id, actor_id, action, decision, metadata, created_at
		FROM audit_log WHERE account_id = $1
		ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuditLogEntry
	for rows.Next() {
		var e entity.AuditLogEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.AccountID, &e.ActorID, &e.Action, &e.Decision, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
