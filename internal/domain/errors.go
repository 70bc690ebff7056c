package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrUserNotFound           = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists     = errors.New("el email ya está registrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrConflict               = errors.New("conflicto con el estado actual")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrConcurrentModification = errors.New("modificación concurrente, reintente el lote")
	ErrPersistence            = errors.New("almacenamiento no disponible")
)

// LineError describe el rechazo de una línea concreta de un lote.
// Line es el índice (base 0) de la línea en la petición original.
type LineError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchError agrupa los rechazos por línea de un lote de movimientos.
// Envuelve el sentinel dominante para que errors.Is siga funcionando en los
// handlers HTTP.
type BatchError struct {
	Err   error
	Lines []LineError
}

// NewBatchError construye un BatchError con el sentinel dominante y sus líneas.
func NewBatchError(err error, lines ...LineError) *BatchError {
	return &BatchError{Err: err, Lines: lines}
}

// Error implementa error con un resumen legible de las líneas rechazadas.
func (e *BatchError) Error() string {
	if len(e.Lines) == 0 {
		return e.Err.Error()
	}
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("línea %d: %s", l.Line, l.Message))
	}
	return fmt.Sprintf("%s (%s)", e.Err.Error(), strings.Join(parts, "; "))
}

// Unwrap expone el sentinel dominante (ErrInvalidInput, ErrInsufficientStock, ...).
func (e *BatchError) Unwrap() error { return e.Err }
