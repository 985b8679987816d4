package upsell

import (
	"context"

	"github.com/tu-usuario/crm-backoffice/internal/domain"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

// ReceiptPDFGenerator genera el comprobante gráfico de una compra registrada.
// Lo implementa pdf.MarotoReceiptGenerator.
type ReceiptPDFGenerator interface {
	GenerateReceiptPDF(ctx context.Context, purchase *entity.Purchase, product *entity.AdditionalProduct, account *entity.Account) ([]byte, error)
}

// ReceiptUseCase produce el PDF del comprobante de una compra.
type ReceiptUseCase struct {
	purchases repository.PurchaseRepository
	products  repository.ProductRepository
	accounts  repository.AccountRepository
	generator ReceiptPDFGenerator
}

// NewReceiptUseCase construye el caso de uso del comprobante.
func NewReceiptUseCase(
	purchases repository.PurchaseRepository,
	products repository.ProductRepository,
	accounts repository.AccountRepository,
	generator ReceiptPDFGenerator,
) *ReceiptUseCase {
	return &ReceiptUseCase{purchases: purchases, products: products, accounts: accounts, generator: generator}
}

// GenerateReceipt valida que la compra pertenezca a la cuenta y genera el PDF.
func (uc *ReceiptUseCase) GenerateReceipt(ctx context.Context, accountID, purchaseID string) ([]byte, error) {
	purchase, err := uc.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, domain.ErrNotFound
	}
	if purchase.AccountID != accountID {
		return nil, domain.ErrForbidden
	}
	product, err := uc.products.GetByID(ctx, purchase.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	account, err := uc.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return uc.generator.GenerateReceiptPDF(ctx, purchase, product, account)
}
