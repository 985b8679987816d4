// Package suspension implementa el ciclo de morosidad de las cuentas: deriva el
// estado de pago, produce los banners por rol, ejecuta suspensión/reactivación y
// corre el barrido batch de cuentas vencidas.
package suspension

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

// Plazos del ciclo de morosidad, en días desde el último fallo de pago.
const (
	GracePeriodDays     = 3
	SuspensionDelayDays = 7
)

// Acciones evaluadas por CanPerformAction.
const (
	ActionCreateUser  = "create_user"
	ActionExportData  = "export_data"
	ActionViewReports = "view_reports"
	ActionEditData    = "edit_data"
)

// Service es el único punto de la aplicación que conoce la política de suspensión.
type Service struct {
	accounts repository.AccountRepository
	audit    repository.AuditRepository
	log      *logger.Logger
}

// NewService construye el servicio de suspensión.
func NewService(accounts repository.AccountRepository, audit repository.AuditRepository, log *logger.Logger) *Service {
	return &Service{accounts: accounts, audit: audit, log: log}
}

// GetSuspensionInfo deriva el estado de pago de la cuenta: días de mora desde el
// último fallo de pago y si sigue dentro del período de gracia.
func (s *Service) GetSuspensionInfo(ctx context.Context, accountID string) (*dto.SuspensionInfo, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return s.buildInfo(account), nil
}

func (s *Service) buildInfo(account *entity.Account) *dto.SuspensionInfo {
	days := daysOverdue(account, time.Now())
	return &dto.SuspensionInfo{
		AccountID:          account.ID,
		PaymentStatus:      account.PaymentStatus,
		IsSuspended:        account.IsSuspended(),
		SuspendedAt:        account.SuspendedAt,
		SuspensionReason:   account.SuspensionReason,
		DaysOverdue:        days,
		IsInGracePeriod:    !account.IsSuspended() && account.LastPaymentFailureAt != nil && days <= GracePeriodDays,
		OutstandingBalance: account.OutstandingBalance,
	}
}

// daysOverdue días completos transcurridos desde el último fallo de pago (0 si no hay fallo).
func daysOverdue(account *entity.Account, now time.Time) int {
	if account.LastPaymentFailureAt == nil {
		return 0
	}
	days := int(now.Sub(*account.LastPaymentFailureAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// GetSuspensionMessage devuelve el banner de estado de pago para el rol dado, o
// nil cuando la cuenta está activa y al día (no hace falta banner).
func (s *Service) GetSuspensionMessage(ctx context.Context, accountID, role string) (*dto.SuspensionMessage, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	if account.PaymentStatus == entity.PaymentStatusActive && !account.IsSuspended() {
		return nil, nil
	}
	return buildMessage(account, role, time.Now()), nil
}

// SuspendAccount suspende la cuenta: fija suspended_at y la razón, y mueve el
// estado a suspended. Re-suspender solo sobrescribe timestamp y razón (idempotente
// en efecto). Escribe una fila de auditoría.
func (s *Service) SuspendAccount(ctx context.Context, accountID, reason, actorID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}
	now := time.Now()
	account.PaymentStatus = entity.PaymentStatusSuspended
	account.SuspendedAt = &now
	account.SuspensionReason = reason
	account.UpdatedAt = now
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("suspender cuenta %s: %w", accountID, err)
	}
	s.log.Warn().Str("account_id", accountID).Str("reason", reason).Msg("cuenta suspendida")
	return s.appendAudit(ctx, accountID, actorID, "account.suspend", entity.AuditDecisionExecuted, map[string]any{
		"reason": reason,
	})
}

// ReactivateAccount reactiva una cuenta suspendida o cancelada: limpia los campos
// de suspensión y el último fallo de pago, y vuelve el estado a active.
func (s *Service) ReactivateAccount(ctx context.Context, accountID, actorID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}
	account.PaymentStatus = entity.PaymentStatusActive
	account.SuspendedAt = nil
	account.SuspensionReason = ""
	account.LastPaymentFailureAt = nil
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("reactivar cuenta %s: %w", accountID, err)
	}
	s.log.Info().Str("account_id", accountID).Msg("cuenta reactivada")
	return s.appendAudit(ctx, accountID, actorID, "account.reactivate", entity.AuditDecisionExecuted, nil)
}

// MarkPaymentFailed registra un fallo de pago del proveedor (webhook): mueve la
// cuenta a past_due, fija la fecha del primer fallo del ciclo y acumula el saldo
// pendiente. La suspensión la decide después ProcessOverdueAccounts.
func (s *Service) MarkPaymentFailed(ctx context.Context, accountID string, amount decimal.Decimal) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}
	if account.IsSuspended() {
		// Ya suspendida: solo acumular el saldo, el estado no retrocede.
		account.OutstandingBalance = account.OutstandingBalance.Add(amount)
	} else {
		account.PaymentStatus = entity.PaymentStatusPastDue
		if account.LastPaymentFailureAt == nil {
			now := time.Now()
			account.LastPaymentFailureAt = &now
		}
		account.OutstandingBalance = account.OutstandingBalance.Add(amount)
	}
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("registrar fallo de pago %s: %w", accountID, err)
	}
	return s.appendAudit(ctx, accountID, "system", "account.payment_failed", entity.AuditDecisionExecuted, map[string]any{
		"amount": amount.String(),
	})
}

// MarkPaymentSucceeded registra un pago exitoso del proveedor: limpia el ciclo de
// morosidad y reactiva la cuenta si estaba suspendida o en mora.
func (s *Service) MarkPaymentSucceeded(ctx context.Context, accountID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}
	account.PaymentStatus = entity.PaymentStatusActive
	account.SuspendedAt = nil
	account.SuspensionReason = ""
	account.LastPaymentFailureAt = nil
	account.OutstandingBalance = decimal.Zero
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("registrar pago exitoso %s: %w", accountID, err)
	}
	return s.appendAudit(ctx, accountID, "system", "account.payment_succeeded", entity.AuditDecisionExecuted, nil)
}

// MarkCanceled mueve la cuenta a canceled (terminal salvo reactivación explícita).
func (s *Service) MarkCanceled(ctx context.Context, accountID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}
	account.PaymentStatus = entity.PaymentStatusCanceled
	account.SuspendedAt = nil
	account.SuspensionReason = ""
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("cancelar suscripción %s: %w", accountID, err)
	}
	return s.appendAudit(ctx, accountID, "system", "account.subscription_canceled", entity.AuditDecisionExecuted, nil)
}

// ProcessOverdueAccounts barre las cuentas con fallo de pago no suspendidas:
// ≥ SuspensionDelayDays suspende; ≥ GracePeriodDays cuenta un warning (la
// notificación se envía fuera de este servicio). Los fallos por cuenta se
// acumulan: una fila mala no bloquea el resto del lote.
func (s *Service) ProcessOverdueAccounts(ctx context.Context) (*dto.SweepResult, error) {
	accounts, err := s.accounts.ListOverdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar cuentas morosas: %w", err)
	}
	result := &dto.SweepResult{}
	now := time.Now()
	for _, account := range accounts {
		days := daysOverdue(account, now)
		switch {
		case days >= SuspensionDelayDays:
			reason := fmt.Sprintf("pago vencido hace %d días", days)
			if err := s.SuspendAccount(ctx, account.ID, reason, "system"); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("cuenta %s: %v", account.ID, err))
				continue
			}
			result.Suspended++
		case days >= GracePeriodDays:
			result.Warnings++
		}
	}
	s.log.Info().
		Int("suspended", result.Suspended).
		Int("warnings", result.Warnings).
		Int("errors", len(result.Errors)).
		Msg("barrido de morosidad completado")
	return result, nil
}

// CanPerformAction evalúa la política por estado de pago. Ante un error interno
// deniega por defecto (fail-closed): es un invariante de seguridad deliberado.
func (s *Service) CanPerformAction(ctx context.Context, accountID, action string) dto.ActionCheck {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil || account == nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("verificación de estado de cuenta falló; se deniega")
		return dto.ActionCheck{Allowed: false, Code: "ACCOUNT_STATUS_ERROR", Reason: "no se pudo verificar el estado de la cuenta"}
	}
	switch account.PaymentStatus {
	case entity.PaymentStatusSuspended:
		return dto.ActionCheck{Allowed: false, Code: "ACCOUNT_SUSPENDED", Reason: "la cuenta está suspendida por falta de pago"}
	case entity.PaymentStatusCanceled:
		if action == ActionViewReports {
			return dto.ActionCheck{Allowed: true}
		}
		return dto.ActionCheck{Allowed: false, Code: "ACTION_RESTRICTED", Reason: "la suscripción está cancelada; solo se permite consultar reportes"}
	case entity.PaymentStatusPastDue:
		if action == ActionCreateUser || action == ActionExportData {
			return dto.ActionCheck{Allowed: false, Code: "ACTION_RESTRICTED", Reason: "acción restringida mientras haya un pago pendiente"}
		}
		return dto.ActionCheck{Allowed: true}
	case entity.PaymentStatusActive:
		return dto.ActionCheck{Allowed: true}
	default:
		// Estado desconocido: misma política fail-closed que un error interno.
		return dto.ActionCheck{Allowed: false, Code: "ACCOUNT_STATUS_ERROR", Reason: "estado de pago desconocido"}
	}
}

func (s *Service) appendAudit(ctx context.Context, accountID, actorID, action, decision string, metadata map[string]any) error {
	return s.audit.Append(ctx, &entity.AuditLogEntry{
		ID:        uuid.New().String(),
		AccountID: accountID,
		ActorID:   actorID,
		Action:    action,
		Decision:  decision,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})
}
