package upsell_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/application/upsell"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
	"github.com/tu-usuario/crm-backoffice/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
// ──────────────────────────────────────────────────────────────────────────────

type fakeAccounts struct {
	account *entity.Account
}

func (r *fakeAccounts) GetByID(_ context.Context, id string) (*entity.Account, error) {
	if r.account != nil && r.account.ID == id {
		return r.account, nil
	}
	return nil, nil
}
func (r *fakeAccounts) Update(_ context.Context, a *entity.Account) error { return nil }
func (r *fakeAccounts) ListOverdue(_ context.Context) ([]*entity.Account, error) {
	return nil, nil
}

type fakePlans struct {
	plan     *entity.Plan
	included []string
}

func (r *fakePlans) GetByID(_ context.Context, id string) (*entity.Plan, error) {
	if r.plan != nil && r.plan.ID == id {
		return r.plan, nil
	}
	return nil, nil
}
func (r *fakePlans) GetModule(_ context.Context, planID, moduleName string) (*entity.PlanModule, error) {
	return nil, nil
}
func (r *fakePlans) ListIncludedModules(_ context.Context, planID string) ([]string, error) {
	return r.included, nil
}

type fakeProducts struct {
	products []*entity.AdditionalProduct
}

func (r *fakeProducts) GetByID(_ context.Context, id string) (*entity.AdditionalProduct, error) {
	for _, p := range r.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}
func (r *fakeProducts) ListActiveByType(_ context.Context, productType string) ([]*entity.AdditionalProduct, error) {
	var out []*entity.AdditionalProduct
	for _, p := range r.products {
		if p.Type == productType && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakePurchases struct {
	purchases  []*entity.Purchase
	seatAddons int
	modules    []string
	monthSpend decimal.Decimal
}

func (r *fakePurchases) Create(_ context.Context, p *entity.Purchase) error {
	r.purchases = append(r.purchases, p)
	return nil
}
func (r *fakePurchases) GetByID(_ context.Context, id string) (*entity.Purchase, error) {
	for _, p := range r.purchases {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}
func (r *fakePurchases) ListByAccount(_ context.Context, accountID string) ([]*entity.Purchase, error) {
	return r.purchases, nil
}
func (r *fakePurchases) SumSeatAddons(_ context.Context, accountID string) (int, error) {
	return r.seatAddons, nil
}
func (r *fakePurchases) ListPurchasedModules(_ context.Context, accountID string) ([]string, error) {
	return r.modules, nil
}
func (r *fakePurchases) SumAutoChargesSince(_ context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	return r.monthSpend, nil
}

type fakeSettings struct {
	settings *entity.AutoUpgradeSettings
}

func (r *fakeSettings) Get(_ context.Context, accountID string) (*entity.AutoUpgradeSettings, error) {
	return r.settings, nil
}
func (r *fakeSettings) Upsert(_ context.Context, s *entity.AutoUpgradeSettings) error {
	r.settings = s
	return nil
}

type fakeUsage struct {
	activeUsers int
}

func (r *fakeUsage) CountActiveUsers(_ context.Context, accountID string) (int, error) {
	return r.activeUsers, nil
}
func (r *fakeUsage) CountModuleItems(_ context.Context, accountID, moduleName string) (int, error) {
	return 0, nil
}

type fakeAudit struct {
	entries []*entity.AuditLogEntry
}

func (r *fakeAudit) Append(_ context.Context, e *entity.AuditLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}
func (r *fakeAudit) ListByAccount(_ context.Context, accountID string, _ int) ([]*entity.AuditLogEntry, error) {
	return r.entries, nil
}

type fakeGateway struct {
	calls int
}

func (g *fakeGateway) GetBillingInfo(_ context.Context, stripeCustomerID string) (*upsell.BillingInfo, error) {
	return &upsell.BillingInfo{SubscriptionID: "sub_123"}, nil
}
func (g *fakeGateway) AddSubscriptionItem(_ context.Context, subscriptionID, priceID string, quantity int, prorate bool) (*upsell.SubscriptionItem, error) {
	g.calls++
	return &upsell.SubscriptionItem{
		SubscriptionItemID: "si_123",
		InvoiceID:          "in_123",
		ProratedAmount:     decimal.NewFromInt(5),
	}, nil
}

// fakeTxRunner corre el callback directamente contra los fakes (sin transacción real).
type fakeTxRunner struct {
	products  *fakeProducts
	purchases *fakePurchases
	audit     *fakeAudit
}

func (r *fakeTxRunner) RunPurchase(ctx context.Context, fn func(repository.ProductRepository, repository.PurchaseRepository, repository.AuditRepository) error) error {
	return fn(r.products, r.purchases, r.audit)
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado del escenario
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	svc       *upsell.Service
	accounts  *fakeAccounts
	plans     *fakePlans
	products  *fakeProducts
	purchases *fakePurchases
	settings  *fakeSettings
	usage     *fakeUsage
	audit     *fakeAudit
	gateway   *fakeGateway
}

func intPtr(n int) *int { return &n }

// newFixture: cuenta con plan de 5 usuarios, 5 activos (tope alcanzado) y un
// add-on de asientos de 25.00 por unidad (1 asiento por unidad).
func newFixture() *fixture {
	f := &fixture{
		accounts: &fakeAccounts{account: &entity.Account{
			ID:               "acc-1",
			PlanID:           "plan-1",
			PaymentStatus:    entity.PaymentStatusActive,
			StripeCustomerID: "cus_123",
		}},
		plans:     &fakePlans{plan: &entity.Plan{ID: "plan-1", UserLimit: intPtr(5)}},
		purchases: &fakePurchases{monthSpend: decimal.Zero},
		settings:  &fakeSettings{},
		usage:     &fakeUsage{activeUsers: 5},
		audit:     &fakeAudit{},
		gateway:   &fakeGateway{},
	}
	f.products = &fakeProducts{products: []*entity.AdditionalProduct{
		{
			ID:            "prod-seat",
			Name:          "Usuario adicional",
			Type:          entity.ProductTypeUserAddon,
			Price:         decimal.NewFromInt(25),
			Currency:      "USD",
			StripePriceID: "price_seat",
			UnitIncrement: 1,
			IsActive:      true,
		},
	}}
	tx := &fakeTxRunner{products: f.products, purchases: f.purchases, audit: f.audit}
	f.svc = upsell.NewService(
		f.accounts, f.plans, f.products, f.purchases, f.settings,
		f.usage, f.audit, f.gateway, tx, logger.Nop(),
	)
	return f
}

func enabledSettings(maxUsers int, maxCharge int64) *entity.AutoUpgradeSettings {
	return &entity.AutoUpgradeSettings{
		AccountID:            "acc-1",
		Enabled:              true,
		UserLimitEnabled:     true,
		MaxAutoUsers:         maxUsers,
		MaxMonthlyAutoCharge: decimal.NewFromInt(maxCharge),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Detección de oportunidades
// ──────────────────────────────────────────────────────────────────────────────

func TestDetectUpsellOpportunities_TopeDeAsientos(t *testing.T) {
	f := newFixture()

	opps, err := f.svc.DetectUpsellOpportunities(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, dto.OpportunityUserLimit, opps[0].Type)
	assert.Equal(t, "prod-seat", opps[0].ProductID)
	assert.Equal(t, 5, opps[0].CurrentCount)
	assert.Equal(t, 5, opps[0].Limit)
	assert.Equal(t, 1, opps[0].SuggestedQuantity, "en el tope exacto se sugiere al menos 1 unidad")
}

func TestDetectUpsellOpportunities_BajoElTopeNoHayOportunidad(t *testing.T) {
	f := newFixture()
	f.usage.activeUsers = 3

	opps, err := f.svc.DetectUpsellOpportunities(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Empty(t, opps)
}

// La cantidad sugerida redondea hacia arriba: 3 usuarios de exceso con paquetes
// de 5 asientos → 1 paquete; 7 de exceso → 2 paquetes.
func TestDetectUpsellOpportunities_RedondeoHaciaArriba(t *testing.T) {
	f := newFixture()
	f.products.products[0].UnitIncrement = 5

	f.usage.activeUsers = 8 // 3 de exceso
	opps, err := f.svc.DetectUpsellOpportunities(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, 1, opps[0].SuggestedQuantity)

	f.usage.activeUsers = 12 // 7 de exceso
	opps, err = f.svc.DetectUpsellOpportunities(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, 2, opps[0].SuggestedQuantity, "nunca sub-provisionar la sugerencia")
}

// Los add-ons ya comprados elevan el tope efectivo.
func TestDetectUpsellOpportunities_AddonsElevanElTope(t *testing.T) {
	f := newFixture()
	f.purchases.seatAddons = 3 // tope efectivo 5+3=8
	f.usage.activeUsers = 6

	opps, err := f.svc.DetectUpsellOpportunities(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Empty(t, opps, "6 usuarios con tope efectivo 8 no es oportunidad")
}

func TestDetectUpsellOpportunities_PlanIlimitado(t *testing.T) {
	f := newFixture()
	f.plans.plan.UserLimit = nil
	f.usage.activeUsers = 1000

	opps, err := f.svc.DetectUpsellOpportunities(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestDetectUpsellOpportunities_ModulosNoIncluidos(t *testing.T) {
	f := newFixture()
	f.usage.activeUsers = 1 // sin oportunidad de asientos
	f.plans.included = []string{entity.ModuleCRM}
	f.purchases.modules = []string{entity.ModuleReports}
	f.products.products = append(f.products.products,
		&entity.AdditionalProduct{
			ID: "prod-crm", Name: "CRM", Type: entity.ProductTypeModule,
			ModuleName: entity.ModuleCRM, Price: decimal.NewFromInt(50), IsActive: true,
		},
		&entity.AdditionalProduct{
			ID: "prod-reports", Name: "Reportes", Type: entity.ProductTypeModule,
			ModuleName: entity.ModuleReports, Price: decimal.NewFromInt(30), IsActive: true,
		},
		&entity.AdditionalProduct{
			ID: "prod-analytics", Name: "Analítica", Type: entity.ProductTypeModule,
			ModuleName: entity.ModuleAnalytics, Price: decimal.NewFromInt(80), IsActive: true,
		},
	)

	opps, err := f.svc.DetectUpsellOpportunities(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Len(t, opps, 1, "incluidos y ya comprados quedan fuera")
	assert.Equal(t, dto.OpportunityModule, opps[0].Type)
	assert.Equal(t, entity.ModuleAnalytics, opps[0].ModuleName)
}

// ──────────────────────────────────────────────────────────────────────────────
// Guardas del auto-upsell
// ──────────────────────────────────────────────────────────────────────────────

func TestExecuteAutoUpsell_DeshabilitadoRehusaYAudita(t *testing.T) {
	f := newFixture() // settings nil = nunca configurado

	result, err := f.svc.ExecuteAutoUpsell(context.Background(), "acc-1", "admin-1")
	require.NoError(t, err)
	assert.False(t, result.Executed)
	assert.NotEmpty(t, result.Reason)
	assert.Equal(t, 0, f.gateway.calls, "no debe tocar el proveedor de facturación")

	// El rechazo queda auditado.
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, entity.AuditDecisionRefused, f.audit.entries[0].Decision)
}

func TestExecuteAutoUpsell_TopeDeUsuariosRehusa(t *testing.T) {
	f := newFixture()
	// La compra proyectaría 6 usuarios y el tope de auto-upgrade es 5.
	f.settings.settings = enabledSettings(5, 1000)

	result, err := f.svc.ExecuteAutoUpsell(context.Background(), "acc-1", "admin-1")
	require.NoError(t, err)
	assert.False(t, result.Executed)
	assert.Contains(t, result.Reason, "tope")
	assert.Equal(t, 0, f.gateway.calls)
	assert.Empty(t, f.purchases.purchases, "no debe registrarse ninguna compra")
}

func TestExecuteAutoUpsell_TopeMensualRehusa(t *testing.T) {
	f := newFixture()
	f.settings.settings = enabledSettings(100, 100)
	f.purchases.monthSpend = decimal.NewFromInt(90) // 90 + 25 > 100

	result, err := f.svc.ExecuteAutoUpsell(context.Background(), "acc-1", "admin-1")
	require.NoError(t, err)
	assert.False(t, result.Executed)
	assert.Equal(t, 0, f.gateway.calls)
}

func TestExecuteAutoUpsell_DentroDeGuardasCompra(t *testing.T) {
	f := newFixture()
	f.settings.settings = enabledSettings(100, 1000)

	result, err := f.svc.ExecuteAutoUpsell(context.Background(), "acc-1", "admin-1")
	require.NoError(t, err)
	require.True(t, result.Executed)
	require.NotNil(t, result.Purchase)
	assert.True(t, result.Purchase.AutoPurchased)
	assert.True(t, result.Purchase.Total.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 1, f.gateway.calls)

	// Queda la compra y su fila de auditoría.
	require.Len(t, f.purchases.purchases, 1)
	assert.Equal(t, "si_123", f.purchases.purchases[0].StripeSubscriptionItemID)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "upsell.auto_purchase", f.audit.entries[0].Action)
	assert.Equal(t, entity.AuditDecisionExecuted, f.audit.entries[0].Decision)
}

func TestExecuteAutoUpsell_SinOportunidadVigente(t *testing.T) {
	f := newFixture()
	f.settings.settings = enabledSettings(100, 1000)
	f.usage.activeUsers = 2 // bajo el tope

	result, err := f.svc.ExecuteAutoUpsell(context.Background(), "acc-1", "admin-1")
	require.NoError(t, err)
	assert.False(t, result.Executed)
	assert.Equal(t, 0, f.gateway.calls)
}

// ──────────────────────────────────────────────────────────────────────────────
// Compra manual
// ──────────────────────────────────────────────────────────────────────────────

func TestExecuteManualUpsell_SinGuardasDeAutoUpgrade(t *testing.T) {
	f := newFixture() // auto-upgrade nunca configurado

	out, err := f.svc.ExecuteManualUpsell(context.Background(), "acc-1", "prod-seat", 3, "admin-1")
	require.NoError(t, err)
	assert.False(t, out.AutoPurchased)
	assert.Equal(t, 3, out.Quantity)
	assert.True(t, out.Total.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, "in_123", out.InvoiceID)
}

func TestExecuteManualUpsell_ProductoInactivo(t *testing.T) {
	f := newFixture()
	f.products.products[0].IsActive = false

	_, err := f.svc.ExecuteManualUpsell(context.Background(), "acc-1", "prod-seat", 1, "admin-1")
	assert.ErrorIs(t, err, domain.ErrProductInactive)
}

func TestExecuteManualUpsell_SinClienteDeFacturacion(t *testing.T) {
	f := newFixture()
	f.accounts.account.StripeCustomerID = ""

	_, err := f.svc.ExecuteManualUpsell(context.Background(), "acc-1", "prod-seat", 1, "admin-1")
	assert.ErrorIs(t, err, domain.ErrNoSubscription)
}

func TestExecuteManualUpsell_CantidadInvalida(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ExecuteManualUpsell(context.Background(), "acc-1", "prod-seat", 0, "admin-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Puerta de creación de usuarios
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateUserCreation_BajoElTope(t *testing.T) {
	f := newFixture()
	f.usage.activeUsers = 3

	check, err := f.svc.ValidateUserCreation(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, 3, check.CurrentCount)
	assert.Equal(t, 5, check.Limit)
}

func TestValidateUserCreation_TopeSinAutoUpgrade(t *testing.T) {
	f := newFixture()

	check, err := f.svc.ValidateUserCreation(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.False(t, check.AutoUpgradeAvailable)
	assert.NotEmpty(t, check.Message)
}

func TestValidateUserCreation_TopeConMargenDeAutoUpgrade(t *testing.T) {
	f := newFixture()
	f.settings.settings = enabledSettings(20, 1000)

	check, err := f.svc.ValidateUserCreation(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.True(t, check.AutoUpgradeAvailable, "hay margen: tope 5 < max_auto_users 20")
}

func TestValidateUserCreation_TopeYaEnElMaximoDeAutoUpgrade(t *testing.T) {
	f := newFixture()
	f.settings.settings = enabledSettings(5, 1000) // tope efectivo ya en el máximo

	check, err := f.svc.ValidateUserCreation(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.False(t, check.AutoUpgradeAvailable)
}

// ──────────────────────────────────────────────────────────────────────────────
// Listado de compras
// ──────────────────────────────────────────────────────────────────────────────

func TestListPurchases_MapeaLasComprasRegistradas(t *testing.T) {
	f := newFixture()
	f.purchases.purchases = []*entity.Purchase{
		{
			ID:              "pur-1",
			AccountID:       "acc-1",
			ProductID:       "prod-seat",
			Quantity:        2,
			Total:           decimal.NewFromInt(50),
			AutoPurchased:   true,
			StripeInvoiceID: "in_123",
			CreatedAt:       time.Now(),
		},
	}

	out, err := f.svc.ListPurchases(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "pur-1", out[0].ID)
	assert.Equal(t, "in_123", out[0].InvoiceID)
	assert.True(t, out[0].AutoPurchased)
	assert.True(t, out[0].Total.Equal(decimal.NewFromInt(50)))
}

func TestListPurchases_SinComprasDevuelveListaVacia(t *testing.T) {
	f := newFixture()

	out, err := f.svc.ListPurchases(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
