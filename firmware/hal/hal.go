// Package hal holds the digital pin abstractions used by the firmware logic. machine.Pin satisfies both
// InputPin and OutputPin, which keeps the logic packages buildable and testable without TinyGo.
package hal

// InputPin is a digital input
type InputPin interface {
	Get() bool
}

// OutputPin is a digital output
type OutputPin interface {
	Set(bool)
}

// ActiveLow inverts an input wired with a pull-up, so Get reports true while the line is pulled low
type ActiveLow struct {
	Pin InputPin
}

// Get implements InputPin
func (a ActiveLow) Get() bool {
	return !a.Pin.Get()
}

// Alarm is an audible output
type Alarm interface {
	On() error
	Off() error
}

// PinAlarm drives an Alarm from a plain output pin
type PinAlarm struct {
	Pin OutputPin
}

// On implements Alarm
func (a PinAlarm) On() error {
	a.Pin.Set(true)
	return nil
}

// Off implements Alarm
func (a PinAlarm) Off() error {
	a.Pin.Set(false)
	return nil
}

// FakePin is an in-memory pin for tests and for hardware that is not fitted
type FakePin struct {
	Value bool
	// Writes counts calls to Set
	Writes int
}

// Get implements InputPin
func (p *FakePin) Get() bool {
	return p.Value
}

// Set implements OutputPin
func (p *FakePin) Set(v bool) {
	p.Value = v
	p.Writes++
}
