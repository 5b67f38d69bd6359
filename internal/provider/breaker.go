package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/oukeidos/loct/internal/apperrors"
)

const (
	breakerConsecutiveFailures = 5
	breakerOpenTimeout         = 30 * time.Second
)

// breakerTranslator shields the upstream service behind a circuit breaker.
// When consecutive calls keep failing, further segments fail fast with a
// transient error instead of hammering a service that is already down; the
// orchestrator records those segments as failed and the run continues.
type breakerTranslator struct {
	inner Translator
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps a Translator with a circuit breaker.
func WithBreaker(inner Translator) Translator {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "translate",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// Only upstream availability problems should trip the breaker.
			// Bad requests and model output issues say nothing about service
			// health.
			if err == nil {
				return true
			}
			kind, ok := apperrors.KindOf(err)
			if !ok {
				return false
			}
			return kind != apperrors.KindTransient && kind != apperrors.KindRateLimit
		},
	})
	return &breakerTranslator{inner: inner, cb: cb}
}

func (b *breakerTranslator) Translate(ctx context.Context, req Request) (*Response, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Translate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.New(
				apperrors.KindTransient,
				"Translation service appears to be down; backing off.",
				fmt.Errorf("circuit breaker: %w", err),
			)
		}
		return nil, err
	}
	return result.(*Response), nil
}

func (b *breakerTranslator) Close() error {
	return b.inner.Close()
}
