package dto

import "time"

// AuditEntryResponse salida de una entrada del registro de auditoría.
type AuditEntryResponse struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Decision  string         `json:"decision"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
