// Package sched provides the clock, interval timers and tick loop that each execution context runs on.
package sched

import (
	"context"
	"time"
)

// Clock tells the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Interval tracks the time since it was last reset. It is Elapsed once strictly more than Period has passed.
type Interval struct {
	Period time.Duration
	last   time.Time
}

// NewInterval creates an Interval that starts counting at now
func NewInterval(period time.Duration, now time.Time) Interval {
	return Interval{Period: period, last: now}
}

// Reset restarts the interval at now
func (i *Interval) Reset(now time.Time) {
	i.last = now
}

// Elapsed reports whether more than Period has passed since the last Reset
func (i *Interval) Elapsed(now time.Time) bool {
	return now.Sub(i.last) > i.Period
}

// Due is Elapsed, and resets the interval when it returns true. It is used for throttling.
func (i *Interval) Due(now time.Time) bool {
	if !i.Elapsed(now) {
		return false
	}
	i.last = now
	return true
}

// Task is one execution context's unit of work, called once per scheduling tick
type Task interface {
	Tick(now time.Time)
}

// TaskFunc adapts a function to a Task
type TaskFunc func(now time.Time)

// Tick implements Task
func (f TaskFunc) Tick(now time.Time) {
	f(now)
}

// Run ticks the task until ctx is done. A zero period loops as fast as possible, which is what the motion
// context needs to produce pulses on time.
func Run(ctx context.Context, clock Clock, period time.Duration, task Task) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task.Tick(clock.Now())

		if period > 0 {
			time.Sleep(period)
		}
	}
}
