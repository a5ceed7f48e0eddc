// Package retry provides the backoff policy shared by the scan and poll
// paths.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy bounds repeated attempts against the device.
type Policy struct {
	MaxAttempts int           // total attempts, >= 1
	BaseDelay   time.Duration // delay before attempt 2
	MaxDelay    time.Duration // cap on the exponential delay
	Jitter      time.Duration // uniform random addition, 0 disables
}

// Default matches the unit vendor's recommended budget.
var Default = Policy{
	MaxAttempts: 3,
	BaseDelay:   200 * time.Millisecond,
	MaxDelay:    5 * time.Second,
	Jitter:      50 * time.Millisecond,
}

// Normalize clamps nonsense values to a usable policy.
func (p Policy) Normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay returns the pause before the given attempt (1-based). Attempt 1 has
// no delay; later attempts back off as BaseDelay*2^(attempt-2), capped.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return p.jittered(0)
	}
	d := p.BaseDelay << uint(attempt-2)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	return p.jittered(d)
}

func (p Policy) jittered(d time.Duration) time.Duration {
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}

// Do runs fn until it succeeds, the retry budget is exhausted, retryable
// rejects the error, or ctx is cancelled. Backoff sleeps observe ctx.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func() error) error {
	p = p.Normalize()

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			if sleepErr := sleep(ctx, p.Delay(attempt)); sleepErr != nil {
				return sleepErr
			}
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
