// Package retry runs provider calls under a bounded backoff policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"
)

// Policy bounds retries of one call. MaxRetries 2 means three attempts in total.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Logger receives one debug line per retry. Nil disables logging.
	Logger logrus.FieldLogger
}

// DefaultPolicy returns three attempts with 500ms-5s jittered backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retryable reports whether err should trigger another attempt.
// Context cancellation and permanent errors never do.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsPermanent(err)
}

// Do calls fn until it succeeds, returns a non-retryable error, the policy is
// exhausted, or ctx ends.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	builder := retrypolicy.NewBuilder[T]().
		WithBackoff(p.BaseDelay, p.MaxDelay).
		WithMaxRetries(p.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ T, err error) bool {
			return Retryable(err)
		})
	if p.Logger != nil {
		log := p.Logger
		builder = builder.OnRetry(func(e failsafe.ExecutionEvent[T]) {
			log.WithError(e.LastError()).WithField("attempt", e.Attempts()).Debug("retrying call")
		})
	}

	v, err := failsafe.With[T](builder.Build()).WithContext(ctx).Get(func() (T, error) {
		return fn(ctx)
	})
	if err != nil {
		var perm *permanentError
		if errors.As(err, &perm) {
			return v, perm.err
		}
	}
	return v, err
}
