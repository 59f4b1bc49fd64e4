package dto

// Límites de paginación de los listados (historial de asignaciones).
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest ventana solicitada por query string.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage normaliza Limit a [1, MaxPageLimit] y Offset a >= 0.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Window recorta la ventana a total elementos y devuelve [start, end).
// Un Offset mayor que total queda en total (página vacía).
func (p *PageRequest) Window(total int) (start, end int) {
	if p.Offset > total {
		p.Offset = total
	}
	end = p.Offset + p.Limit
	if end > total {
		end = total
	}
	return p.Offset, end
}

// PageResponse metadatos de la página devuelta.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ErrorResponse cuerpo de error HTTP: código estable para el cliente y mensaje legible.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
