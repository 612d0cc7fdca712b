// Package retry implements a bounded, fixed-delay retry policy for calls
// whose result can be unusable without being an error.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// errUnusable marks an attempt whose value Failed rejected.
var errUnusable = errors.New("unusable result")

// Policy describes how often and when to try again.
type Policy[T any] struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Delay is waited between attempts.
	Delay time.Duration
	// Failed reports whether a successful result is still unusable.
	Failed func(T) bool
	// Notify is called before each wait with the delay about to be waited.
	Notify backoff.Notify
	// Timer replaces the wall-clock timer between attempts. Tests only.
	Timer backoff.Timer
}

// Outcome reports what Do ended with.
type Outcome[T any] struct {
	Value    T
	Attempts int
	// Exhausted is true when every attempt produced an unusable result.
	Exhausted bool
}

func (p Policy[T]) backOff(ctx context.Context) backoff.BackOffContext {
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(retries))
	return backoff.WithContext(b, ctx)
}

// Do calls fn until it returns a usable value or the attempts run out.
// Errors from fn are returned immediately without retrying. When every
// attempt is unusable, the last value is returned unchanged.
func Do[T any](ctx context.Context, p Policy[T], fn func(ctx context.Context, attempt int) (T, error)) (Outcome[T], error) {
	var out Outcome[T]

	operation := func() error {
		v, err := fn(ctx, out.Attempts)
		out.Attempts++
		if err != nil {
			return backoff.Permanent(err)
		}
		out.Value = v
		if p.Failed != nil && p.Failed(v) {
			return errUnusable
		}
		return nil
	}

	err := backoff.RetryNotifyWithTimer(operation, p.backOff(ctx), p.Notify, p.Timer)
	if errors.Is(err, errUnusable) {
		out.Exhausted = true
		return out, nil
	}
	return out, err
}
