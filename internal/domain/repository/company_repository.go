package repository

import (
	"context"

	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para las empresas del CRM.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	// ListByAccount lista la página pedida y devuelve además el total de
	// empresas de la cuenta (para los metadatos de paginación).
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*entity.Company, int, error)
}
