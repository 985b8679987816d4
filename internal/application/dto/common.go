package dto

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// ErrorResponse cuerpo de error HTTP con código legible por máquina.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LimitErrorResponse error de tope de uso: incluye el conteo actual y el límite
// para que el cliente pueda renderizar el prompt de upgrade.
type LimitErrorResponse struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	CurrentCount int    `json:"current_count"`
	Limit        int    `json:"limit"`
}
