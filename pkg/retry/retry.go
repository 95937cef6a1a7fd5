// Package retry retries idempotent reads with exponential backoff.
// Writes such as order creation or payment confirmation must not use it.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

type Policy struct {
	Base       time.Duration
	MaxRetries uint64
	MaxDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Base: 100 * time.Millisecond, MaxRetries: 3, MaxDelay: 2 * time.Second}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error that retrying cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Read runs fn until it succeeds, returns a permanent error, the context is
// done, or the policy gives up.
func Read[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	b := goretry.NewExponential(p.Base)
	b = goretry.WithJitterPercent(10, b)
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}
	b = goretry.WithMaxRetries(p.MaxRetries, b)

	err := goretry.Do(ctx, b, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
			return nil
		}
		if IsPermanent(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return goretry.RetryableError(err)
	})
	return out, err
}
