// Package safety latches the hardware emergency-stop input.
package safety

import (
	"sync/atomic"

	"github.com/TheBlueOompaLoompa/iv-admin/firmware/hal"
)

// Interlock latches a trip when the emergency input is asserted and sounds the alarm. Only the operator can
// clear it: a button press followed by a release, both observed while tripped and with the emergency input no
// longer asserted. Software never clears it on its own.
//
// Poll is called from the input context only. Tripped may be read from any context.
type Interlock struct {
	input hal.InputPin
	alarm hal.Alarm

	tripped atomic.Bool

	// ackPressed is set once the button has been seen pressed while tripped
	ackPressed bool

	verbose bool
}

// New creates an Interlock. input reports true while the emergency line is asserted.
func New(input hal.InputPin, alarm hal.Alarm) *Interlock {
	return &Interlock{
		input: input,
		alarm: alarm,
	}
}

// Poll samples the emergency input and the operator's button and returns whether the interlock is tripped
func (i *Interlock) Poll(pressed bool) bool {
	if i.input.Get() {
		if !i.tripped.Load() {
			i.trip()
		}
		i.ackPressed = false
		return true
	}

	if !i.tripped.Load() {
		return false
	}

	if pressed {
		i.ackPressed = true
		return true
	}

	if i.ackPressed {
		i.clear()
	}

	return i.tripped.Load()
}

// Tripped reports whether the interlock is latched
func (i *Interlock) Tripped() bool {
	return i.tripped.Load()
}

// Verbose enables logging of trips and acknowledgments
func (i *Interlock) Verbose() {
	i.verbose = true
}

func (i *Interlock) trip() {
	i.tripped.Store(true)
	println("EMERGENCY STOP")
	err := i.alarm.On()
	if err != nil {
		println("error sounding alarm:", err.Error())
	}
}

func (i *Interlock) clear() {
	i.ackPressed = false
	err := i.alarm.Off()
	if err != nil {
		println("error silencing alarm:", err.Error())
	}
	i.tripped.Store(false)
	if i.verbose {
		println("emergency stop acknowledged")
	}
}
