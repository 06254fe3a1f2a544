// Package pages is the rotary-encoder UI state machine. It runs in the input context, decides which page is
// shown, and tells the motion context when to start or stop dosing.
package pages

import (
	"strconv"
	"time"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/crosscore"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/hal"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/motion"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/sched"
)

// Config has the UI's tunables
type Config struct {
	// VolumeUnitML is the volume of one encoder unit on the volume page
	VolumeUnitML float64
	// LongPress on the volume page opens calibration
	LongPress time.Duration
	// RedrawPeriod throttles redraws of the dosing countdown
	RedrawPeriod time.Duration
	// Accelerate multiplies each encoder step by the encoder's velocity
	Accelerate bool
}

// DefaultConfig returns the standard UI settings
func DefaultConfig() Config {
	return Config{
		VolumeUnitML: 10,
		LongPress:    3 * time.Second,
		RedrawPeriod: time.Second,
	}
}

// Encoder is the rotary input
type Encoder interface {
	Poll(now time.Time) int
	Velocity() int
}

// Interlock is the emergency-stop latch
type Interlock interface {
	Poll(pressed bool) bool
	Tripped() bool
}

// Runner reports whether the motion context has a move in progress
type Runner interface {
	Running() bool
}

// Display draws a Screen
type Display interface {
	Render(ivadmin.Screen) error
}

// IO is everything the Machine reads from and writes to
type IO struct {
	// Button reports true while pressed
	Button  hal.InputPin
	Encoder Encoder
	// Safety may be nil when no interlock is fitted
	Safety  Interlock
	Motion  Runner
	Display Display

	Signal  *crosscore.Channel
	Command *crosscore.Published[motion.Command]
}

// Machine is the UI state machine. Tick is only called from the input context. StartRequested, StopRequested,
// Reset and Status may be called from any context.
type Machine struct {
	cfg Config
	io  IO

	page        ivadmin.Page
	pageChanged bool
	accumulator int64

	request      ivadmin.DosingRequest
	sessionStart time.Time
	remaining    int64

	pressed    bool
	pressStart time.Time
	tripped    bool

	redraw        sched.Interval
	displayFailed bool

	remoteStart   crosscore.Channel
	remoteRequest crosscore.Published[ivadmin.DosingRequest]
	remoteStop    crosscore.Channel
	remoteReset   crosscore.Channel
	status        crosscore.Published[ivadmin.Status]

	verbose bool
}

// New creates a Machine showing the volume page
func New(cfg Config, io IO, now time.Time) *Machine {
	m := &Machine{
		cfg:         cfg,
		io:          io,
		page:        ivadmin.PageSetVolume,
		pageChanged: true,
		redraw:      sched.NewInterval(cfg.RedrawPeriod, now),
	}
	m.publish()
	return m
}

// Tick runs one pass of the UI at the input context's polling rate
func (m *Machine) Tick(now time.Time) {
	pressed := m.io.Button.Get()
	buttonChanged := pressed != m.pressed
	released := m.pressed && !pressed
	m.pressed = pressed

	if m.io.Safety != nil && m.io.Safety.Poll(pressed) {
		m.whileTripped()
		return
	}
	if m.tripped {
		// this release acknowledged the alarm, it is not a click on the page underneath
		m.tripped = false
		m.publish()
		m.render()
		return
	}

	dirty := m.pageChanged || buttonChanged
	m.pageChanged = false

	m.remoteInputs(now)

	if pressed && buttonChanged {
		m.pressStart = now
	}

	delta := m.io.Encoder.Poll(now)

	if m.page == ivadmin.PageDosing {
		m.remaining = m.request.DurationMinutes*60 - int64(now.Sub(m.sessionStart)/time.Second)
		switch {
		case m.remaining <= 0:
			if m.verbose {
				println("dose complete")
			}
			m.stop()
		case released:
			m.stop()
		case m.redraw.Due(now):
			dirty = true
		}
	} else if released {
		m.release(now)
	} else if delta != 0 {
		next := max(m.accumulator+m.step(delta), 0)
		if next != m.accumulator {
			m.accumulator = next
			dirty = true
		}
	}

	if m.pageChanged {
		m.pageChanged = false
		dirty = true
	}

	m.publish()
	if dirty {
		m.render()
	}
}

// StartRequested asks to start dosing req straight away, as the network client does. It returns false when the
// request is refused: the interlock is tripped or the request is invalid.
func (m *Machine) StartRequested(req ivadmin.DosingRequest) bool {
	if req.Validate() != nil {
		return false
	}
	if m.io.Safety != nil && m.io.Safety.Tripped() {
		return false
	}
	m.remoteRequest.Store(req)
	m.remoteStart.Post()
	return true
}

// StopRequested asks to cancel the current dose. It has no effect unless dosing.
func (m *Machine) StopRequested() {
	m.remoteStop.Post()
}

// Reset leaves the calibration pages
func (m *Machine) Reset() {
	m.remoteReset.Post()
}

// Status is the latest state published by Tick
func (m *Machine) Status() ivadmin.Status {
	return m.status.Load()
}

// Page is the current page. Input context only.
func (m *Machine) Page() ivadmin.Page {
	return m.page
}

// Accumulator is the encoder count on the entry pages. Input context only.
func (m *Machine) Accumulator() int64 {
	return m.accumulator
}

// Request is the current dosing request. Input context only.
func (m *Machine) Request() ivadmin.DosingRequest {
	return m.request
}

// Verbose enables logging of page changes
func (m *Machine) Verbose() {
	m.verbose = true
}

func (m *Machine) whileTripped() {
	if !m.tripped {
		m.tripped = true
		m.publish()
		m.render()
	}

	if m.remoteStart.TryConsume() {
		println("start refused: emergency stop")
	}
	m.remoteStop.TryConsume()
}

func (m *Machine) remoteInputs(now time.Time) {
	if m.remoteReset.TryConsume() && (m.page == ivadmin.PageCalibrate || m.page == ivadmin.PageCalibrateSave) {
		m.setPage(ivadmin.PageSetVolume)
	}

	if m.remoteStart.TryConsume() {
		m.setPage(m.startDosing(m.remoteRequest.Load(), now))
	}

	if m.remoteStop.TryConsume() && m.page == ivadmin.PageDosing {
		m.stop()
	}
}

func (m *Machine) release(now time.Time) {
	defer func() { m.accumulator = 0 }()

	if m.page == ivadmin.PageSetVolume && now.Sub(m.pressStart) >= m.cfg.LongPress {
		m.setPage(ivadmin.PageCalibrate)
		return
	}

	if m.io.Motion.Running() {
		// short presses are swallowed while the motor is moving
		return
	}

	next := m.page.OnRelease()
	switch m.page {
	case ivadmin.PageSetVolume:
		m.request = ivadmin.DosingRequest{VolumeML: float64(m.accumulator) * m.cfg.VolumeUnitML}
	case ivadmin.PageSetDuration:
		next = m.startDosing(ivadmin.DosingRequest{
			VolumeML:        m.request.VolumeML,
			DurationMinutes: m.accumulator,
		}, now)
	case ivadmin.PageCalibrate:
		m.send(motion.Command{Kind: motion.CommandCalibrate})
	}

	if next != m.page {
		m.setPage(next)
	}
}

// startDosing returns the page to show next. Nothing is sent to the motion context when there is no volume to
// deliver, the dose is complete straight away. A zero duration still shows the dosing page, which expires on
// the next tick.
func (m *Machine) startDosing(req ivadmin.DosingRequest, now time.Time) ivadmin.Page {
	m.request = req
	m.accumulator = 0

	if req.VolumeML <= 0 {
		println("nothing to dose over", req.DurationMinutes, "min")
		m.remaining = 0
		return ivadmin.PageSetVolume
	}

	println("dosing", strconv.FormatFloat(req.VolumeML, 'f', 2, 64), "mL over", req.DurationMinutes, "min")

	m.sessionStart = now
	m.remaining = req.DurationMinutes * 60
	m.redraw.Reset(now)
	m.send(motion.Command{Kind: motion.CommandDose, Request: req})
	return ivadmin.PageDosing
}

func (m *Machine) stop() {
	m.send(motion.Command{Kind: motion.CommandStop})
	m.remaining = 0
	m.accumulator = 0
	m.setPage(ivadmin.PageSetVolume)
}

func (m *Machine) send(cmd motion.Command) {
	m.io.Command.Store(cmd)
	if !m.io.Signal.Post() && m.verbose {
		println("motion signal already pending")
	}
}

func (m *Machine) setPage(p ivadmin.Page) {
	if m.verbose {
		println("page:", m.page.String(), "->", p.String())
	}
	m.page = p
	m.pageChanged = true
}

func (m *Machine) step(delta int) int64 {
	if !m.cfg.Accelerate {
		return int64(delta)
	}
	v := m.io.Encoder.Velocity()
	if v < 0 {
		v = -v
	}
	return int64(delta * max(v, 1))
}

func (m *Machine) publish() {
	var remaining int64
	if m.page == ivadmin.PageDosing {
		remaining = max(m.remaining, 0)
	}

	running := false
	if m.io.Motion != nil {
		running = m.io.Motion.Running()
	}

	m.status.Store(ivadmin.Status{
		VolumeML:         m.request.VolumeML,
		RemainingSeconds: remaining,
		Page:             m.page,
		Tripped:          m.tripped,
		Running:          running,
	})
}

func (m *Machine) screen() ivadmin.Screen {
	s := ivadmin.Screen{
		Page:     m.page,
		Value:    m.accumulator,
		VolumeML: m.request.VolumeML,
		Tripped:  m.tripped,
	}
	switch m.page {
	case ivadmin.PageSetVolume:
		s.VolumeML = float64(m.accumulator) * m.cfg.VolumeUnitML
	case ivadmin.PageDosing:
		s.Value = max(m.remaining, 0)
	}
	return s
}

func (m *Machine) render() {
	if m.io.Display == nil {
		return
	}

	err := m.io.Display.Render(m.screen())
	if err != nil && !m.displayFailed {
		println("error rendering display:", err.Error())
		m.displayFailed = true
	}
}
