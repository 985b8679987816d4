// Package users implementa las mutaciones atómicas de usuarios: cada operación
// bloquea la fila (SELECT ... FOR UPDATE), corre la validación del caller contra
// la fila actual (no contra la vista desactualizada del caller), aplica solo
// campos de la lista blanca y confirma o revierte como una unidad.
package users

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/domain"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
	"golang.org/x/crypto/bcrypt"
)

// ValidateFn predicado del caller evaluado contra la fila actual, dentro de la
// transacción y con el lock tomado. Devolver error aborta la operación.
type ValidateFn func(current *entity.User) error

// UserUpdates es la lista blanca de campos actualizables: el struct tipado es la
// frontera que impide colar campos de escalamiento de privilegios en un update.
// Campo nil = sin cambio.
type UserUpdates struct {
	Name   *string
	Role   *string
	Status *string
}

// CreateUserInput entrada para CreateUserAtomic.
type CreateUserInput struct {
	AccountID string
	Email     string
	Password  string
	Name      string
	Role      string
}

// Service agrupa las operaciones atómicas sobre usuarios.
type Service struct {
	txRunner UserTxRunner
}

// NewService construye el servicio de mutaciones atómicas.
func NewService(txRunner UserTxRunner) *Service {
	return &Service{txRunner: txRunner}
}

// UpdateUserAtomic bloquea la fila, valida contra el estado actual, aplica los
// campos presentes en updates, estampa updated_at y confirma. Escribe una fila
// de auditoría en la misma transacción.
func (s *Service) UpdateUserAtomic(ctx context.Context, userID string, updates UserUpdates, validate ValidateFn, actorID string) (*dto.UserResponse, error) {
	var out *dto.UserResponse
	err := s.txRunner.RunUser(ctx, func(
		userRepo repository.UserRepository,
		_ repository.PermissionRepository,
		auditRepo repository.AuditRepository,
	) error {
		user, err := userRepo.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if validate != nil {
			if err := validate(user); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrValidationFailed, err)
			}
		}

		changed := map[string]any{}
		if updates.Name != nil {
			user.Name = *updates.Name
			changed["name"] = *updates.Name
		}
		if updates.Role != nil {
			if entity.RoleLevel(*updates.Role) == 0 {
				return domain.ErrInvalidInput
			}
			user.Role = *updates.Role
			changed["role"] = *updates.Role
		}
		if updates.Status != nil {
			user.Status = *updates.Status
			changed["status"] = *updates.Status
		}
		user.UpdatedAt = time.Now()
		if err := userRepo.Update(ctx, user); err != nil {
			return err
		}
		if err := appendAudit(ctx, auditRepo, user.AccountID, actorID, "user.update", changed, userID); err != nil {
			return err
		}
		out = toUserResponse(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUserAtomic borra lógicamente al usuario: bloquea y valida igual que un
// update, renombra el email al centinela deleted_<id>_<email> y marca inactive.
// La fila nunca se elimina: se preserva integridad referencial y auditoría.
func (s *Service) DeleteUserAtomic(ctx context.Context, userID string, validate ValidateFn, actorID string) error {
	return s.txRunner.RunUser(ctx, func(
		userRepo repository.UserRepository,
		_ repository.PermissionRepository,
		auditRepo repository.AuditRepository,
	) error {
		user, err := userRepo.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if validate != nil {
			if err := validate(user); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrValidationFailed, err)
			}
		}
		previousEmail := user.Email
		user.Email = user.DeletedEmail()
		user.Status = "inactive"
		user.UpdatedAt = time.Now()
		if err := userRepo.Update(ctx, user); err != nil {
			return err
		}
		return appendAudit(ctx, auditRepo, user.AccountID, actorID, "user.delete", map[string]any{
			"previous_email": previousEmail,
		}, userID)
	})
}

// CreateUserAtomic crea un usuario verificando la unicidad del email dentro de la
// misma transacción que el insert (evita la carrera check-then-insert).
func (s *Service) CreateUserAtomic(ctx context.Context, in CreateUserInput, actorID string) (*dto.UserResponse, error) {
	if in.AccountID == "" || in.Email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	if entity.RoleLevel(in.Role) == 0 {
		return nil, domain.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var out *dto.UserResponse
	err = s.txRunner.RunUser(ctx, func(
		userRepo repository.UserRepository,
		_ repository.PermissionRepository,
		auditRepo repository.AuditRepository,
	) error {
		exists, err := userRepo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrEmailAlreadyExists
		}
		now := time.Now()
		name := in.Name
		if name == "" {
			name = in.Email
		}
		user := &entity.User{
			ID:           uuid.New().String(),
			AccountID:    in.AccountID,
			Email:        in.Email,
			PasswordHash: string(hash),
			Name:         name,
			Role:         in.Role,
			Status:       "active",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return err
		}
		if err := appendAudit(ctx, auditRepo, in.AccountID, actorID, "user.create", map[string]any{
			"email": in.Email,
			"role":  in.Role,
		}, user.ID); err != nil {
			return err
		}
		out = toUserResponse(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceUserPermissionsAtomic reemplaza el set completo de permisos del usuario:
// borra todas las filas existentes e inserta el set nuevo dentro de una sola
// transacción. Semántica de reemplazo total, no de parche incremental; la ventana
// sin permisos es invisible para otros lectores bajo el aislamiento estándar.
func (s *Service) ReplaceUserPermissionsAtomic(ctx context.Context, userID string, entries []dto.PermissionEntry, validate ValidateFn, actorID string) error {
	return s.txRunner.RunUser(ctx, func(
		userRepo repository.UserRepository,
		permRepo repository.PermissionRepository,
		auditRepo repository.AuditRepository,
	) error {
		user, err := userRepo.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if validate != nil {
			if err := validate(user); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrValidationFailed, err)
			}
		}
		if err := permRepo.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		perms := make([]*entity.UserPermission, 0, len(entries))
		modules := make([]string, 0, len(entries))
		for _, e := range entries {
			perms = append(perms, &entity.UserPermission{
				ID:         uuid.New().String(),
				UserID:     userID,
				ModuleName: e.ModuleName,
				CanView:    e.CanView,
				CanCreate:  e.CanCreate,
				CanEdit:    e.CanEdit,
				CanDelete:  e.CanDelete,
			})
			modules = append(modules, e.ModuleName)
		}
		if len(perms) > 0 {
			if err := permRepo.BulkInsert(ctx, perms); err != nil {
				return err
			}
		}
		return appendAudit(ctx, auditRepo, user.AccountID, actorID, "user.replace_permissions", map[string]any{
			"modules": modules,
		}, userID)
	})
}

func appendAudit(ctx context.Context, auditRepo repository.AuditRepository, accountID, actorID, action string, metadata map[string]any, targetUserID string) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["target_user_id"] = targetUserID
	return auditRepo.Append(ctx, &entity.AuditLogEntry{
		ID:        uuid.New().String(),
		AccountID: accountID,
		ActorID:   actorID,
		Action:    action,
		Decision:  entity.AuditDecisionExecuted,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        u.ID,
		AccountID: u.AccountID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
