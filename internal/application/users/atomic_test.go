package users_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/application/users"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
// ──────────────────────────────────────────────────────────────────────────────

type fakeUsers struct {
	byID map[string]*entity.User
}

func newFakeUsers(seed ...*entity.User) *fakeUsers {
	r := &fakeUsers{byID: map[string]*entity.User{}}
	for _, u := range seed {
		cp := *u
		r.byID[u.ID] = &cp
	}
	return r
}

func (r *fakeUsers) Create(_ context.Context, u *entity.User) error {
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *fakeUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetForUpdate devuelve una copia: la fila almacenada solo cambia vía Update,
// igual que una fila bloqueada que aún no se escribió.
func (r *fakeUsers) GetForUpdate(ctx context.Context, id string) (*entity.User, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUsers) Update(_ context.Context, u *entity.User) error {
	if _, ok := r.byID[u.ID]; !ok {
		return fmt.Errorf("usuario %s no existe", u.ID)
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *fakeUsers) ListByAccount(_ context.Context, accountID string, _, _ int) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range r.byID {
		if u.AccountID == accountID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakePerms struct {
	byUser map[string][]*entity.UserPermission
}

func newFakePerms() *fakePerms {
	return &fakePerms{byUser: map[string][]*entity.UserPermission{}}
}

func (r *fakePerms) GetByUserAndModule(_ context.Context, userID, moduleName string) (*entity.UserPermission, error) {
	for _, p := range r.byUser[userID] {
		if p.ModuleName == moduleName {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePerms) ListByUser(_ context.Context, userID string) ([]*entity.UserPermission, error) {
	return r.byUser[userID], nil
}

func (r *fakePerms) DeleteByUser(_ context.Context, userID string) error {
	delete(r.byUser, userID)
	return nil
}

func (r *fakePerms) BulkInsert(_ context.Context, perms []*entity.UserPermission) error {
	for _, p := range perms {
		r.byUser[p.UserID] = append(r.byUser[p.UserID], p)
	}
	return nil
}

type fakeAudit struct {
	entries []*entity.AuditLogEntry
}

func (r *fakeAudit) Append(_ context.Context, e *entity.AuditLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAudit) ListByAccount(_ context.Context, _ string, _ int) ([]*entity.AuditLogEntry, error) {
	return r.entries, nil
}

// fakeTxRunner ejecuta el callback directamente contra los fakes. No simula
// rollback: los casos de error de estas pruebas fallan antes de escribir.
type fakeTxRunner struct {
	users *fakeUsers
	perms *fakePerms
	audit *fakeAudit
}

func (r *fakeTxRunner) RunUser(_ context.Context, fn func(
	repository.UserRepository,
	repository.PermissionRepository,
	repository.AuditRepository,
) error) error {
	return fn(r.users, r.perms, r.audit)
}

var _ users.UserTxRunner = (*fakeTxRunner)(nil)

// serializingTxRunner modela el lock de fila: dos transacciones sobre el mismo
// usuario corren una después de la otra, y la segunda lee la fila ya confirmada
// por la primera (GetForUpdate del fake devuelve el estado confirmado).
type serializingTxRunner struct {
	mu    sync.Mutex
	users *fakeUsers
	perms *fakePerms
	audit *fakeAudit
}

func (r *serializingTxRunner) RunUser(_ context.Context, fn func(
	repository.UserRepository,
	repository.PermissionRepository,
	repository.AuditRepository,
) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.users, r.perms, r.audit)
}

var _ users.UserTxRunner = (*serializingTxRunner)(nil)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func seedUser() *entity.User {
	return &entity.User{
		ID:        "user-1",
		AccountID: "acc-1",
		Email:     "ana@acme.com",
		Name:      "Ana",
		Role:      entity.RoleUser,
		Status:    "active",
	}
}

func newService(seed ...*entity.User) (*users.Service, *fakeTxRunner) {
	runner := &fakeTxRunner{
		users: newFakeUsers(seed...),
		perms: newFakePerms(),
		audit: &fakeAudit{},
	}
	return users.NewService(runner), runner
}

func strPtr(s string) *string { return &s }

// ──────────────────────────────────────────────────────────────────────────────
// UpdateUserAtomic
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateUserAtomic_AplicaSoloCamposPresentes(t *testing.T) {
	svc, runner := newService(seedUser())

	resp, err := svc.UpdateUserAtomic(context.Background(), "user-1", users.UserUpdates{
		Name: strPtr("Ana María"),
		Role: strPtr(entity.RoleAdmin),
	}, nil, "actor-9")
	require.NoError(t, err)

	assert.Equal(t, "Ana María", resp.Name)
	assert.Equal(t, entity.RoleAdmin, resp.Role)
	assert.Equal(t, "active", resp.Status, "status no estaba en el update, no debe cambiar")
	assert.Equal(t, "ana@acme.com", resp.Email, "el email nunca es actualizable")

	stored := runner.users.byID["user-1"]
	assert.Equal(t, "Ana María", stored.Name)
	assert.Equal(t, entity.RoleAdmin, stored.Role)

	require.Len(t, runner.audit.entries, 1)
	entry := runner.audit.entries[0]
	assert.Equal(t, "user.update", entry.Action)
	assert.Equal(t, "actor-9", entry.ActorID)
	assert.Equal(t, "user-1", entry.Metadata["target_user_id"])
	assert.Equal(t, "Ana María", entry.Metadata["name"])
	assert.Equal(t, entity.RoleAdmin, entry.Metadata["role"])
	_, hasStatus := entry.Metadata["status"]
	assert.False(t, hasStatus, "solo los campos cambiados van al registro")
}

func TestUpdateUserAtomic_RolDesconocidoRechazado(t *testing.T) {
	svc, runner := newService(seedUser())

	_, err := svc.UpdateUserAtomic(context.Background(), "user-1", users.UserUpdates{
		Role: strPtr("superduperadmin"),
	}, nil, "actor-9")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, entity.RoleUser, runner.users.byID["user-1"].Role, "la fila no debe cambiar")
	assert.Empty(t, runner.audit.entries)
}

func TestUpdateUserAtomic_ValidacionDelCallerAborta(t *testing.T) {
	svc, runner := newService(seedUser())

	reject := func(current *entity.User) error {
		if current.AccountID != "otra-cuenta" {
			return domain.ErrForbidden
		}
		return nil
	}
	_, err := svc.UpdateUserAtomic(context.Background(), "user-1", users.UserUpdates{
		Name: strPtr("Intruso"),
	}, reject, "actor-9")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.ErrorIs(t, err, domain.ErrForbidden, "el centinela del validador debe sobrevivir al wrap")
	assert.Equal(t, "Ana", runner.users.byID["user-1"].Name)
	assert.Empty(t, runner.audit.entries)
}

// Dos updates concurrentes sobre la misma fila se serializan por el lock: la
// segunda transacción valida contra la fila ya confirmada por la primera, no
// contra la vista desactualizada, y ningún cambio se pierde.
func TestUpdateUserAtomic_UpdatesConcurrentesSerializanSinPerderCambios(t *testing.T) {
	runner := &serializingTxRunner{
		users: newFakeUsers(seedUser()),
		perms: newFakePerms(),
		audit: &fakeAudit{},
	}
	svc := users.NewService(runner)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var observedBySecond *entity.User

	var wg sync.WaitGroup
	wg.Add(2)

	// Primera transacción: toma el lock y se queda dentro hasta que la segunda
	// esté esperando su turno.
	go func() {
		defer wg.Done()
		_, err := svc.UpdateUserAtomic(ctx, "user-1", users.UserUpdates{
			Name: strPtr("Ana Primera"),
		}, func(current *entity.User) error {
			close(entered)
			<-release
			return nil
		}, "actor-1")
		assert.NoError(t, err)
	}()

	<-entered
	// Segunda transacción: queda bloqueada en el lock mientras la primera sigue abierta.
	go func() {
		defer wg.Done()
		_, err := svc.UpdateUserAtomic(ctx, "user-1", users.UserUpdates{
			Status: strPtr("inactive"),
		}, func(current *entity.User) error {
			cp := *current
			observedBySecond = &cp
			return nil
		}, "actor-2")
		assert.NoError(t, err)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NotNil(t, observedBySecond)
	assert.Equal(t, "Ana Primera", observedBySecond.Name,
		"la segunda transacción debe validar contra la fila confirmada por la primera")

	final := runner.users.byID["user-1"]
	assert.Equal(t, "Ana Primera", final.Name, "el cambio de la primera no se pierde")
	assert.Equal(t, "inactive", final.Status, "el cambio de la segunda tampoco")
	assert.Len(t, runner.audit.entries, 2)
}

func TestUpdateUserAtomic_UsuarioInexistente(t *testing.T) {
	svc, _ := newService(seedUser())

	_, err := svc.UpdateUserAtomic(context.Background(), "no-existe", users.UserUpdates{
		Name: strPtr("Nadie"),
	}, nil, "actor-9")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// DeleteUserAtomic
// ──────────────────────────────────────────────────────────────────────────────

func TestDeleteUserAtomic_BorradoLogicoRenombraEmail(t *testing.T) {
	svc, runner := newService(seedUser())

	err := svc.DeleteUserAtomic(context.Background(), "user-1", nil, "actor-9")
	require.NoError(t, err)

	stored := runner.users.byID["user-1"]
	assert.Equal(t, "deleted_user-1_ana@acme.com", stored.Email,
		"el email se renombra al centinela, la fila nunca se elimina")
	assert.Equal(t, "inactive", stored.Status)

	require.Len(t, runner.audit.entries, 1)
	entry := runner.audit.entries[0]
	assert.Equal(t, "user.delete", entry.Action)
	assert.Equal(t, "ana@acme.com", entry.Metadata["previous_email"])
	assert.Equal(t, "user-1", entry.Metadata["target_user_id"])
}

func TestDeleteUserAtomic_LiberaElEmailParaReuso(t *testing.T) {
	svc, runner := newService(seedUser())

	require.NoError(t, svc.DeleteUserAtomic(context.Background(), "user-1", nil, "actor-9"))

	exists, err := runner.users.ExistsByEmail(context.Background(), "ana@acme.com")
	require.NoError(t, err)
	assert.False(t, exists, "tras el borrado lógico el email original queda libre")

	_, err = svc.CreateUserAtomic(context.Background(), users.CreateUserInput{
		AccountID: "acc-1",
		Email:     "ana@acme.com",
		Password:  "secreta123",
		Role:      entity.RoleUser,
	}, "actor-9")
	require.NoError(t, err)
}

func TestDeleteUserAtomic_ValidacionRechaza(t *testing.T) {
	svc, runner := newService(seedUser())

	err := svc.DeleteUserAtomic(context.Background(), "user-1", func(*entity.User) error {
		return errors.New("no te toca")
	}, "actor-9")

	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Equal(t, "ana@acme.com", runner.users.byID["user-1"].Email)
	assert.Equal(t, "active", runner.users.byID["user-1"].Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateUserAtomic
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateUserAtomic_CreaConHashYDefaults(t *testing.T) {
	svc, runner := newService()

	resp, err := svc.CreateUserAtomic(context.Background(), users.CreateUserInput{
		AccountID: "acc-1",
		Email:     "nuevo@acme.com",
		Password:  "secreta123",
		Role:      entity.RoleUser,
	}, "actor-9")
	require.NoError(t, err)

	assert.Equal(t, "nuevo@acme.com", resp.Name, "sin nombre, el email hace de nombre")
	assert.Equal(t, "active", resp.Status)
	assert.NotEmpty(t, resp.ID)

	stored := runner.users.byID[resp.ID]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secreta123")))
	assert.NotEqual(t, "secreta123", stored.PasswordHash)

	require.Len(t, runner.audit.entries, 1)
	entry := runner.audit.entries[0]
	assert.Equal(t, "user.create", entry.Action)
	assert.Equal(t, "nuevo@acme.com", entry.Metadata["email"])
	assert.Equal(t, resp.ID, entry.Metadata["target_user_id"])
}

func TestCreateUserAtomic_EmailDuplicado(t *testing.T) {
	svc, runner := newService(seedUser())

	_, err := svc.CreateUserAtomic(context.Background(), users.CreateUserInput{
		AccountID: "acc-2",
		Email:     "ana@acme.com",
		Password:  "secreta123",
		Role:      entity.RoleUser,
	}, "actor-9")

	require.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
	assert.Len(t, runner.users.byID, 1)
	assert.Empty(t, runner.audit.entries)
}

func TestCreateUserAtomic_EntradaInvalida(t *testing.T) {
	svc, _ := newService()

	cases := []struct {
		name string
		in   users.CreateUserInput
	}{
		{"sin email", users.CreateUserInput{AccountID: "acc-1", Password: "secreta123", Role: entity.RoleUser}},
		{"sin password", users.CreateUserInput{AccountID: "acc-1", Email: "x@acme.com", Role: entity.RoleUser}},
		{"sin cuenta", users.CreateUserInput{Email: "x@acme.com", Password: "secreta123", Role: entity.RoleUser}},
		{"rol desconocido", users.CreateUserInput{AccountID: "acc-1", Email: "x@acme.com", Password: "secreta123", Role: "root"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUserAtomic(context.Background(), tc.in, "actor-9")
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// ReplaceUserPermissionsAtomic
// ──────────────────────────────────────────────────────────────────────────────

func TestReplaceUserPermissionsAtomic_ReemplazoTotal(t *testing.T) {
	svc, runner := newService(seedUser())
	runner.perms.byUser["user-1"] = []*entity.UserPermission{
		{ID: "perm-old", UserID: "user-1", ModuleName: entity.ModuleOpportunities, CanView: true, CanDelete: true},
	}

	err := svc.ReplaceUserPermissionsAtomic(context.Background(), "user-1", []dto.PermissionEntry{
		{ModuleName: entity.ModuleCRM, CanView: true, CanCreate: true},
		{ModuleName: entity.ModuleReports, CanView: true},
	}, nil, "actor-9")
	require.NoError(t, err)

	perms := runner.perms.byUser["user-1"]
	require.Len(t, perms, 2, "el set anterior se descarta completo")
	byModule := map[string]*entity.UserPermission{}
	for _, p := range perms {
		byModule[p.ModuleName] = p
	}
	require.Contains(t, byModule, entity.ModuleCRM)
	require.Contains(t, byModule, entity.ModuleReports)
	assert.NotContains(t, byModule, entity.ModuleOpportunities)
	assert.True(t, byModule[entity.ModuleCRM].CanCreate)
	assert.False(t, byModule[entity.ModuleReports].CanCreate)

	require.Len(t, runner.audit.entries, 1)
	entry := runner.audit.entries[0]
	assert.Equal(t, "user.replace_permissions", entry.Action)
	assert.ElementsMatch(t, []string{entity.ModuleCRM, entity.ModuleReports}, entry.Metadata["modules"])
}

func TestReplaceUserPermissionsAtomic_ListaVaciaRevocaTodo(t *testing.T) {
	svc, runner := newService(seedUser())
	runner.perms.byUser["user-1"] = []*entity.UserPermission{
		{ID: "perm-old", UserID: "user-1", ModuleName: entity.ModuleCRM, CanView: true},
	}

	err := svc.ReplaceUserPermissionsAtomic(context.Background(), "user-1", nil, nil, "actor-9")
	require.NoError(t, err)

	assert.Empty(t, runner.perms.byUser["user-1"], "lista vacía es un reemplazo válido: revoca todo")
	require.Len(t, runner.audit.entries, 1)
}

func TestReplaceUserPermissionsAtomic_ValidacionRechaza(t *testing.T) {
	svc, runner := newService(seedUser())
	runner.perms.byUser["user-1"] = []*entity.UserPermission{
		{ID: "perm-old", UserID: "user-1", ModuleName: entity.ModuleCRM, CanView: true},
	}

	err := svc.ReplaceUserPermissionsAtomic(context.Background(), "user-1", []dto.PermissionEntry{
		{ModuleName: entity.ModuleReports, CanView: true},
	}, func(*entity.User) error { return domain.ErrForbidden }, "actor-9")

	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Len(t, runner.perms.byUser["user-1"], 1, "la validación corre antes de tocar permisos")
	assert.Equal(t, entity.ModuleCRM, runner.perms.byUser["user-1"][0].ModuleName)
}
