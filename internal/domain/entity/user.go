package entity

import (
	"fmt"
	"time"
)

// Roles válidos para User. SuperAdmin es cross-tenant; Admin administra su cuenta;
// User es el rol base.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

// RoleLevel devuelve el nivel jerárquico de un rol (mayor = más privilegio).
// Rol desconocido devuelve 0: nunca se otorga privilegio por un rol no reconocido.
func RoleLevel(role string) int {
	switch role {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// User representa un usuario del sistema (pertenece a una Account, salvo superadmin).
type User struct {
	ID           string
	AccountID    string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // ver constantes Role*
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DeletedEmail devuelve el email centinela usado en el borrado lógico: se renombra
// el email en vez de eliminar la fila, preservando integridad referencial y auditoría
// mientras libera el email para reutilizarse.
func (u *User) DeletedEmail() string {
	return fmt.Sprintf("deleted_%s_%s", u.ID, u.Email)
}

// UserPermission representa el override de permisos por usuario y módulo.
// Si no existe fila, aplica el default del rol (ver DefaultPermission).
type UserPermission struct {
	ID         string
	UserID     string
	ModuleName string
	CanView    bool
	CanCreate  bool
	CanEdit    bool
	CanDelete  bool
}

// Allows informa si el permiso cubre la acción dada.
func (p *UserPermission) Allows(action string) bool {
	switch action {
	case ActionView:
		return p.CanView
	case ActionCreate:
		return p.CanCreate
	case ActionEdit:
		return p.CanEdit
	case ActionDelete:
		return p.CanDelete
	default:
		return false
	}
}

// DefaultPermission devuelve el permiso por defecto de un rol para un módulo,
// usado cuando el usuario no tiene fila de override: admin permite todas las
// acciones; user solo lectura.
func DefaultPermission(role, module string) UserPermission {
	switch role {
	case RoleAdmin:
		return UserPermission{ModuleName: module, CanView: true, CanCreate: true, CanEdit: true, CanDelete: true}
	default:
		return UserPermission{ModuleName: module, CanView: true}
	}
}
