package syncer

import (
	"context"
	"math/rand/v2"
	"time"
)

// WaitUntil polls cond every interval until it returns true or timeout
// elapses. A timeout is not an error: the result only says whether cond was
// seen true, and callers find out about staleness on their next read.
func WaitUntil(ctx context.Context, cond func(context.Context) bool, interval, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond(ctx) {
			return true
		}
		if !time.Now().Add(interval).Before(deadline) {
			return false
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return false
		}
	}
}

// Waiter carries the poll settings used after each placeholder create.
type Waiter struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultWaiter polls once a second for up to twenty seconds.
var DefaultWaiter = Waiter{Interval: time.Second, Timeout: 20 * time.Second}

func (w Waiter) WaitUntil(ctx context.Context, cond func(context.Context) bool) bool {
	return WaitUntil(ctx, cond, w.Interval, w.Timeout)
}

// Backoff returns the delay before retry attempt n (0-indexed).
type Backoff func(attempt int) time.Duration

// FixedBackoff waits d between every attempt.
func FixedBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff doubles base per attempt and adds up to 50% jitter.
// The result never exceeds max.
func ExponentialBackoff(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base << uint(attempt)
		if d <= 0 || d > max {
			d = max
		}
		if half := int64(d) / 2; half > 0 {
			d += time.Duration(rand.Int64N(half))
		}
		return min(d, max)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
