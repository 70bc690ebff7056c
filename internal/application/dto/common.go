package dto

import "github.com/jhoicas/StockLedger-api/internal/domain"

// DateLayout es el formato de fechas de negocio en la API (solo fecha).
const DateLayout = "2006-01-02"

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=0,max=500"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 500 {
		p.Limit = 500
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ErrorResponse cuerpo de error HTTP. Lines lleva el detalle por línea cuando
// el rechazo proviene de un lote, para que la UI señale la línea exacta.
type ErrorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Lines   []domain.LineError `json:"lines,omitempty"`
}
