package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/jhoicas/Movimientos-api/internal/application/dto"
	"github.com/jhoicas/Movimientos-api/internal/domain"
)

// statusByKind código HTTP por clase de error de dominio.
var statusByKind = map[domain.Kind]int{
	domain.KindValidation:        fiber.StatusBadRequest,
	domain.KindAuthorization:     fiber.StatusForbidden,
	domain.KindNotFound:          fiber.StatusNotFound,
	domain.KindState:             fiber.StatusConflict,
	domain.KindInsufficientStock: fiber.StatusConflict,
	domain.KindTransient:         fiber.StatusServiceUnavailable,
	domain.KindInternal:          fiber.StatusInternalServerError,
}

// writeError traduce el error al sobre uniforme. Los internos no exponen la causa.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	de := domain.AsError(err)
	status, ok := statusByKind[de.Kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("code", de.Code()).Msg("error no controlado")
	}
	var errs any
	if len(de.Shortfalls) > 0 {
		errs = de.Shortfalls
	}
	return c.Status(status).JSON(dto.Fail(de.Code(), de.Message, errs))
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("INVALID_BODY", "cuerpo inválido", nil))
}

// ErrorHandler manejador global de Fiber: rutas inexistentes, métodos no permitidos y panics recuperados.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := "HTTP_ERROR"
			switch fe.Code {
			case fiber.StatusNotFound:
				code = string(domain.KindNotFound)
			case fiber.StatusMethodNotAllowed:
				code = "METHOD_NOT_ALLOWED"
			}
			return c.Status(fe.Code).JSON(dto.Fail(code, fe.Message, nil))
		}
		return writeError(c, log, err)
	}
}
