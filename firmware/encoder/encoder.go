// Package encoder decodes a quadrature rotary encoder into unit steps and tracks how fast it is being turned.
package encoder

import (
	"time"

	"github.com/TheBlueOompaLoompa/iv-admin/firmware/hal"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/sched"
)

const (
	// MaxVelocity bounds the magnitude of the velocity in either direction
	MaxVelocity = 5
	// DecayAfter is how long without a transition before velocity starts moving back toward zero
	DecayAfter = 200 * time.Millisecond
)

// Reader polls two active-low encoder channels. Its velocity grows by one for every transition in the same
// direction and decays by one on every poll once DecayAfter has passed without a transition. A transition
// against the current direction is ignored, which suppresses contact bounce; the direction can only change
// after velocity has decayed back to zero.
type Reader struct {
	chA, chB     hal.InputPin
	lastA, lastB bool

	velocity int
	decay    sched.Interval
}

// New creates a Reader on the raw channel pins. Poll does the active-low inversion, so the pins must not be
// wrapped in hal.ActiveLow.
func New(chA, chB hal.InputPin, now time.Time) *Reader {
	return &Reader{
		chA:   chA,
		chB:   chB,
		decay: sched.NewInterval(DecayAfter, now),
	}
}

// Poll samples both channels and returns -1, 0 or +1
func (r *Reader) Poll(now time.Time) int {
	prevA, prevB := r.lastA, r.lastB
	r.lastA = !r.chA.Get()
	r.lastB = !r.chB.Get()

	if r.decay.Elapsed(now) {
		switch {
		case r.velocity > 0:
			r.velocity--
		case r.velocity < 0:
			r.velocity++
		}
	}

	if prevA == r.lastA && prevB == r.lastB {
		return 0
	}

	switch {
	case prevA && !prevB && r.velocity <= 0:
		r.velocity = max(-MaxVelocity, r.velocity-1)
		r.decay.Reset(now)
		return -1
	case !prevA && prevB && r.velocity >= 0:
		r.velocity = min(MaxVelocity, r.velocity+1)
		r.decay.Reset(now)
		return 1
	}

	return 0
}

// Velocity is the signed turning speed in [-MaxVelocity, MaxVelocity]
func (r *Reader) Velocity() int {
	return r.velocity
}
