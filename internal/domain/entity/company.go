package entity

import "time"

// Company representa una empresa gestionada en el CRM (pertenece a una Account).
// Es la tabla de respaldo del módulo "crm" para el conteo de uso contra ItemLimit.
type Company struct {
	ID        string
	AccountID string
	Name      string
	Industry  string
	Phone     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
