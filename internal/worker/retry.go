package worker

import (
	"context"
	"math"
	"time"
)

// RetryPolicy defines exponential backoff for transient remote failures.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the pause after a failed attempt (1-based), capped by MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Do runs fn until it succeeds, fails with an error retryable rejects, or
// MaxRetries extra attempts are spent. Each attempt gets its own deadline of
// perAttempt. attempted is called after every attempt.
func (r RetryPolicy) Do(ctx context.Context, perAttempt time.Duration, retryable func(error) bool,
	attempted func(error), fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, perAttempt)
		err := fn(callCtx)
		cancel()
		if attempted != nil {
			attempted(err)
		}

		if err == nil || !retryable(err) || attempt > r.MaxRetries {
			return err
		}

		timer := time.NewTimer(r.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
