package http

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockLedger-api/internal/application/dto"
	"github.com/jhoicas/StockLedger-api/internal/domain"
)

// parseBody decodifica el JSON del body y valida el request con los tags
// validate. Si falla, responde 400 con el detalle por campo y devuelve false;
// el handler debe cortar con return nil.
func parseBody(c *fiber.Ctx, in any) bool {
	if err := c.BodyParser(in); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		return false
	}
	if lines := validateStruct(in); lines != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: "request inválido",
			Lines:   lines,
		})
		return false
	}
	return true
}

// urlParam devuelve el parámetro de ruta decodificado (los nombres de bodega
// pueden llevar espacios).
func urlParam(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return "", domain.ErrInvalidInput
	}
	return decoded, nil
}

func writeValidation(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: msg})
}

func badDate(c *fiber.Ctx) error {
	return writeValidation(c, "fecha inválida, formato esperado YYYY-MM-DD")
}
