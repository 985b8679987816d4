package dto

import "time"

// CreateCompanyRequest entrada para crear una empresa en el CRM.
type CreateCompanyRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Industry string `json:"industry" validate:"omitempty,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// CompanyResponse salida de una empresa del CRM.
type CompanyResponse struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Industry  string    `json:"industry,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyListResponse listado paginado de empresas.
type CompanyListResponse struct {
	Items []CompanyResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}
