// Package upsell detecta cuándo el uso alcanzó los topes del plan y ejecuta
// (manual o automáticamente) la compra de un add-on contra el proveedor de
// facturación, registrando la compra y su rastro de auditoría.
package upsell

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
	"github.com/tu-usuario/crm-backoffice/pkg/logger"
)

// Service orquesta detección y ejecución de upsells.
type Service struct {
	accounts  repository.AccountRepository
	plans     repository.PlanRepository
	products  repository.ProductRepository
	purchases repository.PurchaseRepository
	settings  repository.SettingsRepository
	usage     repository.UsageRepository
	audit     repository.AuditRepository
	gateway   BillingGateway
	txRunner  PurchaseTxRunner
	log       *logger.Logger
}

// NewService construye el servicio de upsell.
func NewService(
	accounts repository.AccountRepository,
	plans repository.PlanRepository,
	products repository.ProductRepository,
	purchases repository.PurchaseRepository,
	settings repository.SettingsRepository,
	usage repository.UsageRepository,
	audit repository.AuditRepository,
	gateway BillingGateway,
	txRunner PurchaseTxRunner,
	log *logger.Logger,
) *Service {
	return &Service{
		accounts:  accounts,
		plans:     plans,
		products:  products,
		purchases: purchases,
		settings:  settings,
		usage:     usage,
		audit:     audit,
		gateway:   gateway,
		txRunner:  txRunner,
		log:       log,
	}
}

// seatUsage uso de asientos resuelto: conteo actual y tope efectivo
// (plan + add-ons de usuario ya comprados). limit 0 = ilimitado.
type seatUsage struct {
	current int
	limit   int
}

// resolveSeatUsage calcula el tope efectivo de asientos de la cuenta.
func (s *Service) resolveSeatUsage(ctx context.Context, account *entity.Account) (*seatUsage, error) {
	plan, err := s.plans.GetByID(ctx, account.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrNotFound
	}
	current, err := s.usage.CountActiveUsers(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if plan.UserLimit == nil {
		return &seatUsage{current: current, limit: 0}, nil
	}
	addons, err := s.purchases.SumSeatAddons(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &seatUsage{current: current, limit: *plan.UserLimit + addons}, nil
}

// DetectUpsellOpportunities agrega la verificación de tope de asientos y la de
// módulos contratables fuera del plan.
func (s *Service) DetectUpsellOpportunities(ctx context.Context, accountID string) ([]dto.Opportunity, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	var opportunities []dto.Opportunity

	if opp, err := s.detectSeatOpportunity(ctx, account); err != nil {
		return nil, err
	} else if opp != nil {
		opportunities = append(opportunities, *opp)
	}

	moduleOpps, err := s.detectModuleOpportunities(ctx, account)
	if err != nil {
		return nil, err
	}
	opportunities = append(opportunities, moduleOpps...)
	return opportunities, nil
}

// detectSeatOpportunity propone el add-on de usuarios más barato cuando el conteo
// de usuarios activos alcanzó el tope. La cantidad sugerida siempre redondea
// hacia arriba: nunca sub-provisionar una sugerencia.
func (s *Service) detectSeatOpportunity(ctx context.Context, account *entity.Account) (*dto.Opportunity, error) {
	usage, err := s.resolveSeatUsage(ctx, account)
	if err != nil {
		return nil, err
	}
	if usage.limit == 0 || usage.current < usage.limit {
		return nil, nil
	}
	products, err := s.products.ListActiveByType(ctx, entity.ProductTypeUserAddon)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	cheapest := products[0] // el repo ordena por precio ascendente

	overage := usage.current - usage.limit
	quantity := ceilDiv(overage, cheapest.UnitIncrement)
	if quantity < 1 {
		quantity = 1
	}
	return &dto.Opportunity{
		Type:              dto.OpportunityUserLimit,
		ProductID:         cheapest.ID,
		ProductName:       cheapest.Name,
		UnitPrice:         cheapest.Price,
		Currency:          cheapest.Currency,
		SuggestedQuantity: quantity,
		CurrentCount:      usage.current,
		Limit:             usage.limit,
		Reason:            fmt.Sprintf("la cuenta tiene %d usuarios activos con un tope de %d", usage.current, usage.limit),
	}, nil
}

// detectModuleOpportunities lista productos tipo módulo activos cuyo módulo no
// está incluido en el plan ni ya comprado.
func (s *Service) detectModuleOpportunities(ctx context.Context, account *entity.Account) ([]dto.Opportunity, error) {
	included, err := s.plans.ListIncludedModules(ctx, account.PlanID)
	if err != nil {
		return nil, err
	}
	purchased, err := s.purchases.ListPurchasedModules(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(included)+len(purchased))
	for _, m := range included {
		owned[m] = true
	}
	for _, m := range purchased {
		owned[m] = true
	}

	products, err := s.products.ListActiveByType(ctx, entity.ProductTypeModule)
	if err != nil {
		return nil, err
	}
	var opps []dto.Opportunity
	for _, p := range products {
		if p.ModuleName == "" || owned[p.ModuleName] {
			continue
		}
		opps = append(opps, dto.Opportunity{
			Type:              dto.OpportunityModule,
			ProductID:         p.ID,
			ProductName:       p.Name,
			ModuleName:        p.ModuleName,
			UnitPrice:         p.Price,
			Currency:          p.Currency,
			SuggestedQuantity: 1,
			Reason:            fmt.Sprintf("el módulo '%s' no está incluido en el plan actual", p.ModuleName),
		})
	}
	return opps, nil
}

// ExecuteAutoUpsell ejecuta la compra automática de asientos si la configuración
// lo permite. Es una acción financiera automática con guardas: cada guarda se
// re-verifica en el momento de ejecutar, no solo en la detección.
func (s *Service) ExecuteAutoUpsell(ctx context.Context, accountID, actorID string) (*dto.UpsellResult, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	settings, err := s.settings.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if settings == nil || !settings.Enabled || !settings.UserLimitEnabled {
		return s.refuse(ctx, accountID, actorID, "auto-upgrade deshabilitado para la cuenta"), nil
	}

	opp, err := s.detectSeatOpportunity(ctx, account)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return &dto.UpsellResult{Executed: false, Reason: "no hay oportunidad de asientos vigente"}, nil
	}

	product, err := s.products.GetByID(ctx, opp.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, domain.ErrProductInactive
	}

	projected := opp.Limit + product.SeatsFor(opp.SuggestedQuantity)
	if projected > settings.MaxAutoUsers {
		return s.refuse(ctx, accountID, actorID,
			fmt.Sprintf("la compra proyecta %d usuarios y el tope de auto-upgrade es %d", projected, settings.MaxAutoUsers)), nil
	}

	price := product.Price.Mul(decimal.NewFromInt(int64(opp.SuggestedQuantity)))
	monthSpend, err := s.purchases.SumAutoChargesSince(ctx, accountID, startOfMonth(time.Now()))
	if err != nil {
		return nil, err
	}
	if monthSpend.Add(price).GreaterThan(settings.MaxMonthlyAutoCharge) {
		return s.refuse(ctx, accountID, actorID,
			fmt.Sprintf("el cargo mensual automático superaría el tope (%s + %s > %s)",
				monthSpend.StringFixed(2), price.StringFixed(2), settings.MaxMonthlyAutoCharge.StringFixed(2))), nil
	}

	purchase, err := s.executePurchase(ctx, account, product, opp.SuggestedQuantity, actorID, true, settings.MaxMonthlyAutoCharge)
	if err != nil {
		return nil, err
	}
	return &dto.UpsellResult{Executed: true, Purchase: purchase}, nil
}

// ExecuteManualUpsell ejecuta una compra decidida por un humano: mismo camino de
// compra, sin las guardas de auto-upgrade.
func (s *Service) ExecuteManualUpsell(ctx context.Context, accountID, productID string, quantity int, actorID string) (*dto.PurchaseResponse, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidInput
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	if !product.IsActive {
		return nil, domain.ErrProductInactive
	}
	return s.executePurchase(ctx, account, product, quantity, actorID, false, decimal.Zero)
}

// executePurchase corre la compra dentro de una única transacción: verificar
// producto activo, resolver la suscripción de facturación, agregar la línea en el
// proveedor con prorrateo, persistir la Purchase con los IDs devueltos y escribir
// la fila de auditoría. Cualquier fallo revierte todo: nunca queda una compra
// registrada sin su llamada exitosa al proveedor.
func (s *Service) executePurchase(
	ctx context.Context,
	account *entity.Account,
	product *entity.AdditionalProduct,
	quantity int,
	actorID string,
	auto bool,
	monthlyCap decimal.Decimal,
) (*dto.PurchaseResponse, error) {
	if account.StripeCustomerID == "" {
		return nil, domain.ErrNoSubscription
	}
	billing, err := s.gateway.GetBillingInfo(ctx, account.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("consultar suscripción de facturación: %w", err)
	}
	if billing == nil || billing.SubscriptionID == "" {
		return nil, domain.ErrNoSubscription
	}

	total := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	var response *dto.PurchaseResponse

	err = s.txRunner.RunPurchase(ctx, func(
		productRepo repository.ProductRepository,
		purchaseRepo repository.PurchaseRepository,
		auditRepo repository.AuditRepository,
	) error {
		// Re-verificar el producto con la vista de la transacción.
		current, err := productRepo.GetByID(ctx, product.ID)
		if err != nil {
			return err
		}
		if current == nil || !current.IsActive {
			return domain.ErrProductInactive
		}

		if auto {
			// Re-verificar el tope mensual contra las compras ya confirmadas:
			// cierra (dentro de lo posible) la ventana entre detección y compra.
			monthSpend, err := purchaseRepo.SumAutoChargesSince(ctx, account.ID, startOfMonth(time.Now()))
			if err != nil {
				return err
			}
			if monthSpend.Add(total).GreaterThan(monthlyCap) {
				return fmt.Errorf("%w: el cargo automático superaría el tope mensual", domain.ErrConflict)
			}
		}

		item, err := s.gateway.AddSubscriptionItem(ctx, billing.SubscriptionID, current.StripePriceID, quantity, true)
		if err != nil {
			return fmt.Errorf("agregar línea en el proveedor: %w", err)
		}

		purchase := &entity.Purchase{
			ID:                       uuid.New().String(),
			AccountID:                account.ID,
			ProductID:                current.ID,
			Quantity:                 quantity,
			Total:                    total,
			AutoPurchased:            auto,
			StripeSubscriptionItemID: item.SubscriptionItemID,
			StripeInvoiceID:          item.InvoiceID,
			CreatedAt:                time.Now(),
		}
		if err := purchaseRepo.Create(ctx, purchase); err != nil {
			return err
		}

		action := "upsell.manual_purchase"
		if auto {
			action = "upsell.auto_purchase"
		}
		if err := auditRepo.Append(ctx, &entity.AuditLogEntry{
			ID:        uuid.New().String(),
			AccountID: account.ID,
			ActorID:   actorID,
			Action:    action,
			Decision:  entity.AuditDecisionExecuted,
			Metadata: map[string]any{
				"product_id": current.ID,
				"quantity":   quantity,
				"total":      total.String(),
				"invoice_id": item.InvoiceID,
			},
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}

		response = &dto.PurchaseResponse{
			ID:             purchase.ID,
			AccountID:      purchase.AccountID,
			ProductID:      purchase.ProductID,
			Quantity:       purchase.Quantity,
			Total:          purchase.Total,
			AutoPurchased:  purchase.AutoPurchased,
			InvoiceID:      purchase.StripeInvoiceID,
			ProratedAmount: item.ProratedAmount,
			CreatedAt:      purchase.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("product_id", product.ID).
		Int("quantity", quantity).
		Bool("auto", auto).
		Msg("compra de upsell registrada")
	return response, nil
}

// ValidateUserCreation es la puerta previa a crear un usuario. Al alcanzar el tope
// reporta si el auto-upgrade tiene margen, para ofrecer el autoservicio en vez de
// un bloqueo duro.
func (s *Service) ValidateUserCreation(ctx context.Context, accountID string) (*dto.UserCreationCheck, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	usage, err := s.resolveSeatUsage(ctx, account)
	if err != nil {
		return nil, err
	}
	if usage.limit == 0 || usage.current < usage.limit {
		return &dto.UserCreationCheck{Allowed: true, CurrentCount: usage.current, Limit: usage.limit}, nil
	}

	check := &dto.UserCreationCheck{
		Allowed:      false,
		CurrentCount: usage.current,
		Limit:        usage.limit,
		Message:      fmt.Sprintf("la cuenta alcanzó el tope de %d usuarios del plan", usage.limit),
	}
	settings, err := s.settings.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if settings != nil && settings.Enabled && settings.UserLimitEnabled && usage.limit < settings.MaxAutoUsers {
		check.AutoUpgradeAvailable = true
		check.Message = "la cuenta alcanzó el tope de usuarios; puedes ampliar el cupo automáticamente"
	}
	return check, nil
}

// ListPurchases lista las compras registradas de la cuenta, más recientes primero.
func (s *Service) ListPurchases(ctx context.Context, accountID string) ([]dto.PurchaseResponse, error) {
	purchases, err := s.purchases.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, dto.PurchaseResponse{
			ID:            p.ID,
			AccountID:     p.AccountID,
			ProductID:     p.ProductID,
			Quantity:      p.Quantity,
			Total:         p.Total,
			AutoPurchased: p.AutoPurchased,
			InvoiceID:     p.StripeInvoiceID,
			CreatedAt:     p.CreatedAt,
		})
	}
	return out, nil
}

// refuse registra en auditoría un auto-upsell rechazado por una guarda.
func (s *Service) refuse(ctx context.Context, accountID, actorID, reason string) *dto.UpsellResult {
	if err := s.audit.Append(ctx, &entity.AuditLogEntry{
		ID:        uuid.New().String(),
		AccountID: accountID,
		ActorID:   actorID,
		Action:    "upsell.auto_purchase",
		Decision:  entity.AuditDecisionRefused,
		Metadata:  map[string]any{"reason": reason},
		CreatedAt: time.Now(),
	}); err != nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("registrar rechazo de auto-upsell en auditoría")
	}
	return &dto.UpsellResult{Executed: false, Reason: reason}
}

// ceilDiv división entera redondeando hacia arriba.
func ceilDiv(a, b int) int {
	if b <= 0 {
		b = 1
	}
	return (a + b - 1) / b
}

// startOfMonth primer instante del mes de t (ventana del tope mensual de auto-cargo).
func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
