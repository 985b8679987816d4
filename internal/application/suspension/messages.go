package suspension

import (
	"fmt"
	"time"

	"github.com/tu-usuario/crm-backoffice/internal/application/dto"
	"github.com/tu-usuario/crm-backoffice/internal/domain/entity"
)

// URL del flujo de actualización de método de pago (solo se expone a admins).
const paymentUpdateURL = "/billing/payment"

// buildMessage arma la variante de banner según el estado de la cuenta y el rol.
// Los admins siempre reciben el enlace de actualización de pago; los usuarios
// regulares nunca ven acciones de facturación.
func buildMessage(account *entity.Account, role string, now time.Time) *dto.SuspensionMessage {
	isAdmin := entity.RoleLevel(role) >= entity.RoleLevel(entity.RoleAdmin)
	days := daysOverdue(account, now)

	switch {
	case account.IsSuspended():
		msg := &dto.SuspensionMessage{
			Variant:   dto.SuspensionVariantSuspended,
			Title:     "Cuenta suspendida",
			CanUseApp: false,
		}
		if isAdmin {
			msg.Message = "Tu cuenta está suspendida por falta de pago. Actualiza tu método de pago para reactivarla."
			msg.ActionLabel = "Actualizar método de pago"
			msg.ActionURL = paymentUpdateURL
		} else {
			msg.Message = "La cuenta de tu organización está suspendida. Contacta a tu administrador."
		}
		return msg

	case account.PaymentStatus == entity.PaymentStatusCanceled:
		msg := &dto.SuspensionMessage{
			Variant:   dto.SuspensionVariantCanceled,
			Title:     "Suscripción cancelada",
			CanUseApp: false,
		}
		if isAdmin {
			msg.Message = "La suscripción fue cancelada. Solo puedes consultar reportes. Reactívala para recuperar el acceso completo."
			msg.ActionLabel = "Reactivar suscripción"
			msg.ActionURL = paymentUpdateURL
		} else {
			msg.Message = "La suscripción de tu organización fue cancelada. Contacta a tu administrador."
		}
		return msg

	case account.LastPaymentFailureAt == nil:
		// past_due sin fecha de fallo registrada: advertencia genérica.
		msg := &dto.SuspensionMessage{
			Variant:   dto.SuspensionVariantWarning,
			Title:     "Problema de pago",
			CanUseApp: true,
		}
		if isAdmin {
			msg.Message = "Detectamos un problema con el pago de tu suscripción. Revisa tu método de pago."
			msg.ActionLabel = "Actualizar método de pago"
			msg.ActionURL = paymentUpdateURL
		} else {
			msg.Message = "Hay un problema de pago en tu organización. Contacta a tu administrador."
		}
		return msg

	case days <= GracePeriodDays:
		msg := &dto.SuspensionMessage{
			Variant:   dto.SuspensionVariantGrace,
			Title:     "Pago pendiente",
			CanUseApp: true,
		}
		if isAdmin {
			msg.Message = fmt.Sprintf(
				"Tu último pago falló hace %d días. Tienes hasta el día %d antes de la suspensión de la cuenta.",
				days, SuspensionDelayDays)
			msg.ActionLabel = "Actualizar método de pago"
			msg.ActionURL = paymentUpdateURL
		} else {
			msg.Message = "Hay un pago pendiente en tu organización. Contacta a tu administrador."
		}
		return msg

	default:
		msg := &dto.SuspensionMessage{
			Variant:   dto.SuspensionVariantPastDue,
			Title:     "Pago vencido",
			CanUseApp: true,
		}
		if isAdmin {
			msg.Message = fmt.Sprintf(
				"Tu pago está vencido hace %d días. La cuenta será suspendida al día %d si no se regulariza.",
				days, SuspensionDelayDays)
			msg.ActionLabel = "Actualizar método de pago"
			msg.ActionURL = paymentUpdateURL
		} else {
			msg.Message = "El pago de tu organización está vencido. Contacta a tu administrador."
		}
		return msg
	}
}
