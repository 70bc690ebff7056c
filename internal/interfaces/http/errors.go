package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockLedger-api/internal/application/dto"
	"github.com/jhoicas/StockLedger-api/internal/domain"
)

// writeDomainError mapea un error de dominio a la respuesta HTTP con código
// de máquina y, si el error viene de un lote, el detalle por línea para que
// el operador corrija la línea exacta sin reenviar a ciegas.
func writeDomainError(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)

	resp := dto.ErrorResponse{Code: code, Message: err.Error()}
	var berr *domain.BatchError
	if errors.As(err, &berr) {
		resp.Lines = berr.Lines
	}
	return c.Status(status).JSON(resp)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrEmailAlreadyExists):
		return fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrConcurrentModification):
		return fiber.StatusConflict, "CONCURRENT_MODIFICATION"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrPersistence):
		return fiber.StatusServiceUnavailable, "PERSISTENCE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}
