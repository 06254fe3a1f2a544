// Package stepper drives a DRV8834 step/direction stepper driver without blocking: pulses are produced by
// NextAction whenever the next one is due.
package stepper

import (
	"errors"
	"time"

	"github.com/TheBlueOompaLoompa/iv-admin/firmware/hal"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/motion"
)

const defaultMotorSteps = 200

// MinPulseWidth is how long STEP is held high. The DRV8834 needs at least 1.9µs.
const MinPulseWidth = 2 * time.Microsecond

// Config has the driver's pins and motor specifics
type Config struct {
	Step   hal.OutputPin
	Dir    hal.OutputPin
	Enable hal.OutputPin
	// M0 and M1 select the microstep mode
	M0 hal.OutputPin
	M1 hal.OutputPin

	// MotorSteps is full steps per revolution
	MotorSteps int
	// EnableActiveLow is set when the enable line is the driver's active-low sleep input
	EnableActiveLow bool
	// Reverse flips the direction of delivery
	Reverse bool
}

// DRV8834 implements motion.Driver
type DRV8834 struct {
	cfg Config

	microstep int
	rpm       float64

	remaining int64
	interval  time.Duration
	next      time.Time

	stepHigh bool
	raisedAt time.Time
}

var _ motion.Driver = &DRV8834{}

// microstepPins is the M0/M1 level for each divisor that doesn't need a floating M0
var microstepPins = map[int][2]bool{
	1:  {false, false},
	2:  {true, false},
	8:  {false, true},
	16: {true, true},
}

// New creates the driver, configured for full steps and disabled
func New(cfg Config) (*DRV8834, error) {
	if cfg.Step == nil || cfg.Dir == nil {
		return nil, errors.New("step and dir pins are required")
	}
	if cfg.MotorSteps == 0 {
		cfg.MotorSteps = defaultMotorSteps
	}

	d := &DRV8834{cfg: cfg}
	d.Disable()
	d.SetMicrostep(1)
	d.cfg.Step.Set(false)
	d.cfg.Dir.Set(!cfg.Reverse)

	return d, nil
}

// Enable energizes the motor
func (d *DRV8834) Enable() {
	if d.cfg.Enable != nil {
		d.cfg.Enable.Set(!d.cfg.EnableActiveLow)
	}
}

// Disable releases the motor
func (d *DRV8834) Disable() {
	if d.cfg.Enable != nil {
		d.cfg.Enable.Set(d.cfg.EnableActiveLow)
	}
}

// SetMicrostep selects the step divisor. Divisors that are not wired (4 and 32 need M0 floating) are ignored.
func (d *DRV8834) SetMicrostep(divisor int) {
	levels, ok := microstepPins[divisor]
	if !ok {
		println("unsupported microstep divisor:", divisor)
		return
	}
	if d.cfg.M0 != nil && d.cfg.M1 != nil {
		d.cfg.M0.Set(levels[0])
		d.cfg.M1.Set(levels[1])
	}
	d.microstep = divisor
}

// Microstep returns the current divisor
func (d *DRV8834) Microstep() int {
	return d.microstep
}

// SetRPM sets the speed used by moves that have no duration
func (d *DRV8834) SetRPM(rpm float64) {
	d.rpm = rpm
}

// StartMove begins a move. With a duration the steps are spread evenly over it, otherwise they are timed from
// the RPM and microstep setting.
func (d *DRV8834) StartMove(steps int64, dur time.Duration) {
	d.remaining = 0
	d.next = time.Time{}
	if steps <= 0 {
		return
	}

	switch {
	case dur > 0:
		d.interval = dur / time.Duration(steps)
	case d.rpm > 0:
		stepsPerMinute := d.rpm * float64(d.cfg.MotorSteps) * float64(d.microstep)
		d.interval = time.Duration(float64(time.Minute) / stepsPerMinute)
	default:
		println("move has neither a duration nor a speed")
		return
	}

	d.cfg.Dir.Set(!d.cfg.Reverse)
	d.remaining = steps
}

// Interval is the time between pulses of the current move
func (d *DRV8834) Interval() time.Duration {
	return d.interval
}

// Remaining is the number of steps left in the current move
func (d *DRV8834) Remaining() int64 {
	return d.remaining
}

// State implements motion.Driver. The move is running until the last pulse has been lowered.
func (d *DRV8834) State() motion.State {
	if d.remaining > 0 || d.stepHigh {
		return motion.StateRunning
	}
	return motion.StateStopped
}

// NextAction raises the step pin when the next step is due and lowers it on a later call, once it has been high
// for MinPulseWidth. A late call produces one step and the schedule catches up over the following calls.
func (d *DRV8834) NextAction(now time.Time) {
	if d.stepHigh {
		if now.Sub(d.raisedAt) >= MinPulseWidth {
			d.cfg.Step.Set(false)
			d.stepHigh = false
		}
		return
	}

	if d.remaining <= 0 {
		return
	}
	if d.next.IsZero() {
		d.next = now
	}
	if now.Before(d.next) {
		return
	}

	d.cfg.Step.Set(true)
	d.stepHigh = true
	d.raisedAt = now
	d.remaining--
	d.next = d.next.Add(d.interval)
}

// Stop abandons the current move
func (d *DRV8834) Stop() {
	d.remaining = 0
	if d.stepHigh {
		d.cfg.Step.Set(false)
		d.stepHigh = false
	}
}
