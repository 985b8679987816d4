package dto

import "time"

// CreateUserRequest entrada para crear un usuario (password en texto, se hashea en use case).
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Role     string `json:"role" validate:"required,oneof=admin user"`
}

// UpdateUserRequest campos actualizables de un usuario. Solo los campos presentes
// se aplican; la lista blanca real es users.UserUpdates.
type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Role   *string `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PermissionEntry un permiso por módulo dentro de un reemplazo completo.
type PermissionEntry struct {
	ModuleName string `json:"module_name" validate:"required"`
	CanView    bool   `json:"can_view"`
	CanCreate  bool   `json:"can_create"`
	CanEdit    bool   `json:"can_edit"`
	CanDelete  bool   `json:"can_delete"`
}

// ReplacePermissionsRequest reemplazo completo del set de permisos de un usuario.
type ReplacePermissionsRequest struct {
	Permissions []PermissionEntry `json:"permissions" validate:"required"`
}

// UserLimitResponse respuesta 403 cuando se alcanzó el tope de usuarios del plan.
// AutoUpgradeAvailable le dice al cliente si puede ofrecer la compra automática
// de asientos en vez de un bloqueo duro.
type UserLimitResponse struct {
	Code                 string `json:"code"`
	Message              string `json:"message"`
	CurrentCount         int    `json:"current_count"`
	Limit                int    `json:"limit"`
	AutoUpgradeAvailable bool   `json:"auto_upgrade_available"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
