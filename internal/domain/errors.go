package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Los casos de uso los envuelven con el motivo concreto: fmt.Errorf("%w: motivo", domain.ErrX),
// de modo que el llamador puede clasificar con errors.Is y mostrar el mensaje completo.
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrValidation             = errors.New("validación fallida")
	ErrInsufficientBalance    = errors.New("saldo insuficiente")
	ErrConcurrencyConflict    = errors.New("conflicto de concurrencia")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
)

// IsRetryable indica si el error puede resolverse reintentando la transacción completa.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsClientError indica si el error se debe a una regla de negocio y no a la infraestructura.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientBalance)
}
