package http

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/StockLedger-api/internal/domain"
)

// validate instancia compartida de go-playground/validator. Usa los nombres
// de los tags json para que los mensajes apunten al campo tal como lo envía
// el cliente.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct valida el request y traduce los fallos a LineError con el
// campo culpable, para el mismo contrato de errores que usan los lotes.
func validateStruct(in any) []domain.LineError {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []domain.LineError{{Line: -1, Code: "VALIDATION", Message: err.Error()}}
	}
	out := make([]domain.LineError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, domain.LineError{
			Line:    -1,
			Code:    "VALIDATION",
			Message: fmt.Sprintf("%s: falla la regla %s", fe.Namespace(), fe.Tag()),
		})
	}
	return out
}
