// Package access implementa la puerta de acceso por módulo: rol, inclusión del
// módulo en el plan, permisos por usuario y topes de uso. Toda decisión (otorgar
// o denegar) queda en auditoría: es un rastro de seguridad, no logging incidental.
package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
	"github.com/tu-usuario/crm-backoffice/internal/domain/repository"
	"github.com/tu-usuario/crm-backoffice/pkg/logger"
)

// Códigos de decisión expuestos al caller HTTP.
const (
	CodeModuleNotIncluded      = "MODULE_NOT_INCLUDED"
	CodeModuleAccessDenied     = "MODULE_ACCESS_DENIED"
	CodeActionPermissionDenied = "ACTION_PERMISSION_DENIED"
	CodeUsageLimitExceeded     = "USAGE_LIMIT_EXCEEDED"
	CodePermissionCheckError   = "PERMISSION_CHECK_ERROR"
)

// Request identifica al actor y la acción a evaluar.
type Request struct {
	AccountID string
	UserID    string
	Role      string
	Module    string
	Action    string
}

// Decision resultado tipado de la evaluación. CurrentCount/Limit solo se llenan
// cuando la denegación es por tope de uso, para que el cliente pueda renderizar
// el prompt de upgrade.
type Decision struct {
	Allowed      bool
	Code         string
	Message      string
	CurrentCount int
	Limit        int
}

// Service evalúa el acceso por módulo.
type Service struct {
	accounts repository.AccountRepository
	plans    repository.PlanRepository
	perms    repository.PermissionRepository
	usage    repository.UsageRepository
	audit    repository.AuditRepository
	log      *logger.Logger
}

// NewService construye la puerta de acceso por módulo.
func NewService(
	accounts repository.AccountRepository,
	plans repository.PlanRepository,
	perms repository.PermissionRepository,
	usage repository.UsageRepository,
	audit repository.AuditRepository,
	log *logger.Logger,
) *Service {
	return &Service{accounts: accounts, plans: plans, perms: perms, usage: usage, audit: audit, log: log}
}

// CheckModuleAccess evalúa en orden: bypass de superadmin (auditado), inclusión
// del módulo en el plan, permiso del usuario (override o default de rol) y tope
// de ítems para acciones create. Ante un error interno deniega (fail-closed).
func (s *Service) CheckModuleAccess(ctx context.Context, in Request) Decision {
	decision := s.evaluate(ctx, in)
	s.recordDecision(ctx, in, decision)
	return decision
}

func (s *Service) evaluate(ctx context.Context, in Request) Decision {
	// El rol de mayor privilegio salta todos los chequeos, pero queda auditado.
	if in.Role == entity.RoleSuperAdmin {
		return Decision{Allowed: true}
	}

	account, err := s.accounts.GetByID(ctx, in.AccountID)
	if err != nil || account == nil {
		s.log.Error().Err(err).Str("account_id", in.AccountID).Msg("verificación de acceso a módulo falló; se deniega")
		return Decision{Allowed: false, Code: CodePermissionCheckError, Message: "no se pudo verificar el acceso al módulo"}
	}

	pm, err := s.plans.GetModule(ctx, account.PlanID, in.Module)
	if err != nil {
		s.log.Error().Err(err).Str("module", in.Module).Msg("consultar módulo del plan falló; se deniega")
		return Decision{Allowed: false, Code: CodePermissionCheckError, Message: "no se pudo verificar el acceso al módulo"}
	}
	if pm == nil {
		// Sin fila: el módulo no es parte del plan (contratable vía upgrade).
		return Decision{
			Allowed: false,
			Code:    CodeModuleNotIncluded,
			Message: fmt.Sprintf("el módulo '%s' no está incluido en el plan actual", in.Module),
		}
	}
	if !pm.IsIncluded {
		// Fila con is_included=false: deshabilitado explícitamente.
		return Decision{
			Allowed: false,
			Code:    CodeModuleAccessDenied,
			Message: fmt.Sprintf("el módulo '%s' está deshabilitado para esta cuenta", in.Module),
		}
	}

	perm, err := s.perms.GetByUserAndModule(ctx, in.UserID, in.Module)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", in.UserID).Msg("consultar permisos del usuario falló; se deniega")
		return Decision{Allowed: false, Code: CodePermissionCheckError, Message: "no se pudo verificar el acceso al módulo"}
	}
	if perm == nil {
		def := entity.DefaultPermission(in.Role, in.Module)
		perm = &def
	}
	if !perm.Allows(in.Action) {
		return Decision{
			Allowed: false,
			Code:    CodeActionPermissionDenied,
			Message: fmt.Sprintf("no tienes permiso de '%s' sobre el módulo '%s'", in.Action, in.Module),
		}
	}

	if in.Action == entity.ActionCreate && pm.ItemLimit != nil {
		count, err := s.usage.CountModuleItems(ctx, in.AccountID, in.Module)
		if err != nil {
			s.log.Error().Err(err).Str("module", in.Module).Msg("contar uso del módulo falló; se deniega")
			return Decision{Allowed: false, Code: CodePermissionCheckError, Message: "no se pudo verificar el tope del módulo"}
		}
		if count >= *pm.ItemLimit {
			return Decision{
				Allowed:      false,
				Code:         CodeUsageLimitExceeded,
				Message:      fmt.Sprintf("alcanzaste el tope de %d registros del módulo '%s'", *pm.ItemLimit, in.Module),
				CurrentCount: count,
				Limit:        *pm.ItemLimit,
			}
		}
	}

	return Decision{Allowed: true}
}

// recordDecision escribe la decisión en el registro de auditoría. Un fallo al
// auditar no revierte una decisión ya tomada, pero sí queda en el log operativo.
func (s *Service) recordDecision(ctx context.Context, in Request, d Decision) {
	decision := entity.AuditDecisionGranted
	if !d.Allowed {
		decision = entity.AuditDecisionDenied
	}
	entry := &entity.AuditLogEntry{
		ID:        uuid.New().String(),
		AccountID: in.AccountID,
		ActorID:   in.UserID,
		Action:    "module.access",
		Decision:  decision,
		Metadata: map[string]any{
			"module": in.Module,
			"action": in.Action,
			"role":   in.Role,
		},
		CreatedAt: time.Now(),
	}
	if d.Code != "" {
		entry.Metadata["code"] = d.Code
	}
	if in.Role == entity.RoleSuperAdmin {
		entry.Metadata["superadmin_bypass"] = true
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("account_id", in.AccountID).Msg("registrar decisión de acceso en auditoría")
	}
}
