package repository

import (
	"context"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
)

// PlanRepository define el puerto de persistencia para planes y sus módulos.
type PlanRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Plan, error)
	// GetModule devuelve la fila de inclusión del módulo en el plan, o nil (sin
	// error) si no existe fila: el caller distingue "sin fila" de IsIncluded=false.
	GetModule(ctx context.Context, planID, moduleName string) (*entity.PlanModule, error)
	// ListIncludedModules devuelve los nombres de los módulos incluidos en el plan.
	ListIncludedModules(ctx context.Context, planID string) ([]string, error)
}

// UsageRepository define el puerto de conteo de uso por cuenta.
type UsageRepository interface {
	// CountActiveUsers cuenta los usuarios activos de la cuenta (excluye borrados lógicos).
	CountActiveUsers(ctx context.Context, accountID string) (int, error)
	// CountModuleItems cuenta las filas de la tabla de respaldo del módulo para la
	// cuenta. La implementación usa un switch cerrado de consultas fijas por módulo;
	// nunca interpola identificadores en SQL.
	CountModuleItems(ctx context.Context, accountID, moduleName string) (int, error)
}
