package ports

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/magistral-api/internal/domain"
)

// RetryPolicy reintenta una transacción completa cuando falla por domain.ErrConcurrencyConflict.
type RetryPolicy struct {
	MaxRetries int           // reintentos adicionales al primer intento
	Backoff    time.Duration // espera lineal: Backoff * intento
}

// DefaultRetryPolicy política usada si la configuración no indica otra.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Backoff: 20 * time.Millisecond}

// Do ejecuta fn y la repite mientras devuelva un error reintentable y queden intentos.
// onRetry (opcional) recibe el número de intento fallido y el error, para registro.
func (p RetryPolicy) Do(ctx context.Context, fn func() error, onRetry func(attempt int, err error)) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !domain.IsRetryable(err) || attempt >= p.MaxRetries {
			return err
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}
		if p.Backoff > 0 {
			t := time.NewTimer(p.Backoff * time.Duration(attempt+1))
			select {
			case <-ctx.Done():
				t.Stop()
				return errors.Join(err, ctx.Err())
			case <-t.C:
			}
		}
	}
}
