package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jhoicas/magistral-api/internal/application/dto"
	"github.com/jhoicas/magistral-api/internal/domain"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// errorStatus clasifica un error de dominio en código HTTP y código de error de la API.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return fiber.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return fiber.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return fiber.StatusServiceUnavailable, "CONCURRENCY_CONFLICT"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// writeError responde con el error mapeado. Los errores internos no exponen el detalle.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, code := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
		return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: "error interno"})
	}
	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

// validationError responde 400 con el detalle por campo.
func validationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{
		Code:    "VALIDATION",
		Message: "datos inválidos",
		Fields:  fields,
	})
}

// parseBody decodifica y valida el cuerpo. Devuelve false si ya respondió con error.
func parseBody(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(out); err != nil {
		return false, validationError(c, err)
	}
	return true, nil
}

// parseQuery decodifica y valida la query string.
func parseQuery(c *fiber.Ctx, out any) (bool, error) {
	if err := c.QueryParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	if err := validate.Struct(out); err != nil {
		return false, validationError(c, err)
	}
	return true, nil
}

// requireIdentity verifica que el token haya dejado establecimiento y usuario.
// pathID devuelve el parámetro :id de la ruta. Un identificador mal formado no puede existir: NotFound.
func pathID(c *fiber.Ctx) (string, error) {
	raw := c.Params("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: identificador %q", domain.ErrNotFound, raw)
	}
	return id.String(), nil
}

func requireIdentity(c *fiber.Ctx) (establishmentID, userID string, ok bool) {
	establishmentID, userID = GetEstablishmentID(c), GetUserID(c)
	return establishmentID, userID, establishmentID != "" && userID != ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

// dateRange convierte fechas YYYY-MM-DD en un rango inclusivo [inicio de from, fin de to].
func dateRange(from, to string) (*time.Time, *time.Time) {
	var f, t *time.Time
	if d, err := time.Parse(time.DateOnly, from); err == nil {
		f = &d
	}
	if d, err := time.Parse(time.DateOnly, to); err == nil {
		end := d.Add(24*time.Hour - time.Nanosecond)
		t = &end
	}
	return f, t
}
