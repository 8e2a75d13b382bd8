// Package retry provides a small bounded retry policy, parameterized
// per provider instead of hard-coded at call sites.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes a bounded retry schedule.
type Policy struct {
	MaxAttempts int           // total attempts including the first
	Delay       time.Duration // initial delay between attempts
	Exponential bool          // constant delay when false
	MaxDelay    time.Duration // cap for exponential growth
}

// DefaultPolicy matches the original rate-limit handling: three
// attempts, ten seconds apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: 10 * time.Second}
}

// Do runs op until it succeeds, returns a permanent error, or the
// attempt budget is exhausted. Wrap non-retryable errors in op with
// Permanent to stop immediately.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff
	if p.Exponential {
		e := backoff.NewExponentialBackOff()
		e.InitialInterval = p.Delay
		if p.MaxDelay > 0 {
			e.MaxInterval = p.MaxDelay
		}
		b = e
	} else {
		b = backoff.NewConstantBackOff(p.Delay)
	}
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(op, b)
}

// Permanent marks err as non-retryable for Do.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
