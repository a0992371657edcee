package worker

import (
	"context"
	"time"
)

// Trigger decides when the scheduler starts a cycle.
type Trigger interface {
	Ticks(ctx context.Context) <-chan time.Time
}

// TickerTrigger fires once after InitialDelay and then every Interval.
type TickerTrigger struct {
	InitialDelay time.Duration
	Interval     time.Duration
}

func (t TickerTrigger) Ticks(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time)
	go func() {
		timer := time.NewTimer(t.InitialDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case now := <-timer.C:
			if !send(ctx, out, now) {
				return
			}
		}

		ticker := time.NewTicker(t.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if !send(ctx, out, now) {
					return
				}
			}
		}
	}()
	return out
}

func send(ctx context.Context, out chan<- time.Time, now time.Time) bool {
	select {
	case out <- now:
		return true
	case <-ctx.Done():
		return false
	}
}

// ManualTrigger fires only when Tick is called.
type ManualTrigger struct {
	ch chan time.Time
}

func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{ch: make(chan time.Time)}
}

func (t *ManualTrigger) Ticks(context.Context) <-chan time.Time {
	return t.ch
}

// Tick blocks until the scheduler picks the tick up or ctx ends.
func (t *ManualTrigger) Tick(ctx context.Context) bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-ctx.Done():
		return false
	}
}
