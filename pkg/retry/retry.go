// Package retry runs an operation a bounded number of times with a fixed
// delay between attempts. Errors wrapped with Fatal stop the loop at once;
// every other error is treated as recoverable.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ErrExhausted is returned (wrapping the last attempt's error) when every
// attempt failed with a recoverable error.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes how many times to try and how long to wait in between.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// OnFailure, when set, is called after each failed attempt (1-based).
	OnFailure func(attempt int, err error)
}

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as non-recoverable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// IsExhausted reports whether err came from running out of attempts.
func IsExhausted(err error) bool { return errors.Is(err, ErrExhausted) }

// Do calls fn until it succeeds, returns a fatal error, the context is done,
// or the policy runs out of attempts.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}

	constant := goretry.BackoffFunc(func() (time.Duration, bool) { return delay, false })
	b := goretry.WithMaxRetries(uint64(attempts-1), constant)

	attempt := 0
	var last error
	err := goretry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if p.OnFailure != nil {
			p.OnFailure(attempt, err)
		}
		if IsFatal(err) {
			return err
		}
		return goretry.RetryableError(err)
	})
	switch {
	case err == nil:
		return nil
	case IsFatal(err):
		var fe *fatalError
		errors.As(err, &fe)
		return fe.err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, last)
}
