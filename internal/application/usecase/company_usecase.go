package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

// CompanyUseCase aplica reglas de negocio para las empresas del CRM.
// El tope de registros del módulo lo valida el middleware de acceso, no este caso de uso.
type CompanyUseCase struct {
	repo repository.CompanyRepository
}

// NewCompanyUseCase construye el caso de uso con el puerto de persistencia.
func NewCompanyUseCase(repo repository.CompanyRepository) *CompanyUseCase {
	return &CompanyUseCase{repo: repo}
}

// Create persiste una empresa nueva dentro de la cuenta.
func (uc *CompanyUseCase) Create(ctx context.Context, accountID string, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	company := &entity.Company{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Name:      in.Name,
		Industry:  in.Industry,
		Phone:     in.Phone,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, company); err != nil {
		return nil, err
	}
	return toCompanyResponse(company), nil
}

// GetByID obtiene una empresa; devuelve nil si no existe o pertenece a otra cuenta.
func (uc *CompanyUseCase) GetByID(ctx context.Context, accountID, id string) (*dto.CompanyResponse, error) {
	company, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil || company.AccountID != accountID {
		return nil, nil
	}
	return toCompanyResponse(company), nil
}

// List lista las empresas de la cuenta con paginación.
func (uc *CompanyUseCase) List(ctx context.Context, accountID string, limit, offset int) (*dto.CompanyListResponse, error) {
	companies, total, err := uc.repo.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CompanyResponse, 0, len(companies))
	for _, c := range companies {
		items = append(items, *toCompanyResponse(c))
	}
	return &dto.CompanyListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset, Total: total},
	}, nil
}

func toCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	return &dto.CompanyResponse{
		ID:        c.ID,
		AccountID: c.AccountID,
		Name:      c.Name,
		Industry:  c.Industry,
		Phone:     c.Phone,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
