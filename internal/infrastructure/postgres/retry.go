package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy reintentos acotados con backoff exponencial y jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy tres intentos con base de 20ms.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond}

// backOff intervalo inicial BaseDelay, duplicándose con ±50% de jitter.
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxInterval = p.BaseDelay << 6
	b.Reset()
	return b
}

// retry ejecuta op hasta que tenga éxito, falle con un error no reintentable o se agoten los intentos.
// exhausted indica que el último error sigue siendo reintentable.
func retry(ctx context.Context, p RetryPolicy, retryable func(error) bool, onRetry func(attempt int, err error), op func() error) (exhausted bool, err error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	attempt := 0
	_, err = backoff.Retry(ctx,
		func() (struct{}, error) {
			if err := op(); err != nil {
				if !retryable(err) {
					return struct{}{}, backoff.Permanent(err)
				}
				return struct{}{}, err
			}
			return struct{}{}, nil
		},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, _ time.Duration) {
			attempt++
			if onRetry != nil {
				onRetry(attempt, err)
			}
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return err != nil && retryable(err), err
}
