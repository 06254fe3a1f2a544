// Package motion turns dosing commands into stepper driver moves. It runs in the motion context.
package motion

import (
	"strconv"
	"sync/atomic"
	"time"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/crosscore"
)

// State is the driver's run state
type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	default:
		return "Stopped"
	}
}

// Driver is the stepper driver's motion API
type Driver interface {
	Enable()
	Disable()
	SetMicrostep(divisor int)
	SetRPM(rpm float64)
	// StartMove begins a move of steps spread evenly over d. A zero d moves at the configured RPM.
	StartMove(steps int64, d time.Duration)
	State() State
	// NextAction produces the next pulse when it is due. It must be called often enough for the fastest step rate.
	NextAction(now time.Time)
	// Stop abandons the current move
	Stop()
}

// CommandKind is what the input context is asking for when it signals the motion context
type CommandKind int

const (
	CommandStop CommandKind = iota
	CommandDose
	CommandCalibrate
)

func (k CommandKind) String() string {
	switch k {
	case CommandDose:
		return "Dose"
	case CommandCalibrate:
		return "Calibrate"
	default:
		return "Stop"
	}
}

// Command is published by the input context before it posts the signal
type Command struct {
	Kind    CommandKind
	Request ivadmin.DosingRequest
}

// Tripper reports whether the emergency interlock is latched
type Tripper interface {
	Tripped() bool
}

// Controller consumes signals from the input context and drives the Driver. A signal received while a move is
// active always stops it, whatever command was published.
type Controller struct {
	driver  Driver
	signal  *crosscore.Channel
	command *crosscore.Published[Command]
	safety  Tripper
	cal     Calibration

	running atomic.Bool
	halted  bool

	verbose bool
}

// NewController creates a Controller. safety may be nil when no interlock is fitted.
func NewController(driver Driver, signal *crosscore.Channel, command *crosscore.Published[Command], safety Tripper, cal Calibration) *Controller {
	return &Controller{
		driver:  driver,
		signal:  signal,
		command: command,
		safety:  safety,
		cal:     cal,
	}
}

// Tick is the motion context's heartbeat
func (c *Controller) Tick(now time.Time) {
	if c.safety != nil && c.safety.Tripped() {
		if !c.halted {
			println("motion halted by emergency stop")
			c.halt()
			c.halted = true
		}
		c.signal.TryConsume()
		c.running.Store(false)
		return
	}
	c.halted = false

	if c.signal.TryConsume() {
		c.handle(c.command.Load())
	}

	wasRunning := c.running.Load()
	if c.driver.State() != StateStopped {
		c.driver.NextAction(now)
	}

	running := c.driver.State() != StateStopped
	if wasRunning && !running {
		// de-energize the coils between moves
		c.driver.Disable()
		if c.verbose {
			println("move complete")
		}
	}
	c.running.Store(running)
}

// Running reports whether a move is in progress. It is safe to call from the input context.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Verbose enables logging of every command
func (c *Controller) Verbose() {
	c.verbose = true
}

func (c *Controller) handle(cmd Command) {
	if c.verbose {
		println("motion command:", cmd.Kind.String())
	}

	switch {
	case cmd.Kind == CommandStop:
		c.halt()
	case c.driver.State() != StateStopped:
		// a start while a move is active means stop
		c.halt()
	case cmd.Kind == CommandDose:
		c.dose(cmd.Request)
	case cmd.Kind == CommandCalibrate:
		c.calibrate()
	}
}

func (c *Controller) dose(req ivadmin.DosingRequest) {
	p, ok := c.cal.Profile(req)
	if !ok {
		println("nothing to dose:", strconv.FormatFloat(req.VolumeML, 'f', 2, 64), "mL over", req.DurationMinutes, "min")
		return
	}

	if c.verbose {
		println("dosing", p.Steps, "steps at", strconv.FormatFloat(p.RPM, 'f', 1, 64), "rpm, microstep", p.Microstep, "over", p.Duration.String())
	}

	c.driver.Enable()
	c.driver.SetMicrostep(p.Microstep)
	c.driver.SetRPM(p.RPM)
	c.driver.StartMove(p.Steps, p.Duration)
	c.running.Store(c.driver.State() != StateStopped)
}

func (c *Controller) calibrate() {
	println("calibration run:", int64(c.cal.Steps), "steps")

	c.driver.Enable()
	c.driver.SetMicrostep(c.cal.Microstep)
	c.driver.SetRPM(c.cal.CalibrationRPM)
	c.driver.StartMove(int64(c.cal.Steps), 0)
	c.running.Store(c.driver.State() != StateStopped)
}

func (c *Controller) halt() {
	c.driver.Disable()
	c.driver.Stop()
	c.running.Store(false)
}
