// Package retry wraps remote calls with bounded exponential backoff and a
// per-attempt timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/garyjia/notion-invoice/internal/domain/apperr"
	"github.com/garyjia/notion-invoice/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// Policy controls how an operation is retried.
type Policy struct {
	MaxRetries   int           // retries after the first attempt
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap on any single delay
	Multiplier   float64
	Timeout      time.Duration // per-attempt; zero disables the race

	// ShouldRetry decides whether an error is transient. Defaults to IsRetryable.
	ShouldRetry func(err error) bool
}

// Default returns the general-purpose policy.
func Default() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Timeout:      10 * time.Second,
		ShouldRetry:  IsRetryable,
	}
}

// Notion returns the policy used for Notion API calls.
func Notion() Policy {
	p := Default()
	p.Timeout = 15 * time.Second
	return p
}

// Fast returns a policy for cheap, latency-sensitive calls.
func Fast() Policy {
	return Policy{
		MaxRetries:   2,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		Timeout:      5 * time.Second,
		ShouldRetry:  IsRetryable,
	}
}

// Backoff returns the delay before retry number n (1-based).
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// TimeoutError is returned when a single attempt exceeds Policy.Timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt timed out after %s", e.Timeout)
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// IsRetryable reports whether err looks transient: attempt timeouts, network
// failures, 5xx, 429 and 408 responses, and classified errors of a
// retryable kind. Anything else, including unclassified errors, is final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		status := sc.HTTPStatus()
		return status >= 500 || status == 429 || status == 408
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return apperr.IsRetryable(ae.Kind)
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}

	return false
}

// Do runs fn under policy p. op names the operation in logs and metrics.
// When every attempt fails the last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, logger *zap.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	var zero T
	var lastErr error
	attempts := p.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := runAttempt(ctx, p.Timeout, fn)
		if err == nil {
			metrics.RecordRetry(op, metrics.OutcomeSuccess)
			return result, nil
		}
		lastErr = err

		if attempt == attempts || !shouldRetry(err) {
			metrics.RecordRetry(op, metrics.OutcomeGaveUp)
			if attempt > 1 {
				logger.Warn("Giving up after retries",
					zap.String("operation", op),
					zap.Int("attempts", attempt),
					zap.Error(err))
			}
			return zero, err
		}

		delay := p.Backoff(attempt)
		metrics.RecordRetry(op, metrics.OutcomeRetried)
		logger.Info("Retrying operation",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

type attemptResult[T any] struct {
	value T
	err   error
}

// runAttempt races fn against the per-attempt timeout. The losing call keeps
// running until fn observes its cancelled context.
func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan attemptResult[T], 1)
	go func() {
		v, err := fn(attemptCtx)
		done <- attemptResult[T]{value: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return zero, &TimeoutError{Timeout: timeout}
		}
		return r.value, r.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &TimeoutError{Timeout: timeout}
	}
}
