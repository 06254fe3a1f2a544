//go:build tinygo

package device

import (
	"errors"
	"machine"
	"time"

	"tinygo.org/x/drivers/buzzer"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/crosscore"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/display"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/encoder"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/hal"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/motion"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/pages"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/safety"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/stepper"
)

// Device is the pump. The UI and serial commands run on core 0 and the motion controller runs on core 1.
type Device struct {
	ui        *pages.Machine
	motion    *motion.Controller
	interlock *safety.Interlock
	alarm     *buzzer.Device

	startTime time.Time
	verbose   bool
}

// New configures the hardware and wires the contexts together
func New(cfg Config) (*Device, error) {
	input := func(pins ...machine.Pin) {
		for _, p := range pins {
			p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		}
	}
	output := func(pins ...machine.Pin) {
		for _, p := range pins {
			p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		}
	}

	input(cfg.Encoder.A, cfg.Encoder.B, cfg.Encoder.Button, cfg.Safety.Emergency)
	output(cfg.Safety.Buzzer, cfg.Stepper.Step, cfg.Stepper.Dir, cfg.Stepper.Enable, cfg.Stepper.M0, cfg.Stepper.M1)

	driver, err := stepper.New(stepper.Config{
		Step:            cfg.Stepper.Step,
		Dir:             cfg.Stepper.Dir,
		Enable:          cfg.Stepper.Enable,
		M0:              cfg.Stepper.M0,
		M1:              cfg.Stepper.M1,
		MotorSteps:      cfg.Stepper.MotorSteps,
		EnableActiveLow: true,
	})
	if err != nil {
		return nil, errors.New("error creating stepper: " + err.Error())
	}

	d := &Device{startTime: time.Now()}

	alarm := buzzer.New(cfg.Safety.Buzzer)
	d.alarm = &alarm
	d.interlock = safety.New(hal.ActiveLow{Pin: cfg.Safety.Emergency}, d.alarm)

	var screen pages.Display
	oled, err := display.NewOLED(cfg.Display)
	if err != nil {
		// the pump still works from the serial link without a screen
		println(d.ts(), "error configuring display:", err.Error())
	} else {
		screen = oled
	}

	signal := &crosscore.Channel{}
	command := &crosscore.Published[motion.Command]{}

	d.motion = motion.NewController(driver, signal, command, d.interlock, cfg.Calibration)

	now := time.Now()
	d.ui = pages.New(cfg.UI, pages.IO{
		Button:  hal.ActiveLow{Pin: cfg.Encoder.Button},
		Encoder: encoder.New(cfg.Encoder.A, cfg.Encoder.B, now),
		Safety:  d.interlock,
		Motion:  d.motion,
		Display: screen,
		Signal:  signal,
		Command: command,
	}, now)

	return d, nil
}

// UI is the core 0 task
func (d *Device) UI() *pages.Machine {
	return d.ui
}

// Motion is the core 1 task
func (d *Device) Motion() *motion.Controller {
	return d.motion
}

// Start implements commands.Controller
func (d *Device) Start(req ivadmin.DosingRequest) bool {
	ok := d.ui.StartRequested(req)
	if !ok {
		println(d.ts(), "start refused")
	}
	return ok
}

// Stop implements commands.Controller
func (d *Device) Stop() {
	d.ui.StopRequested()
}

// Status implements commands.Controller
func (d *Device) Status() ivadmin.Status {
	return d.ui.Status()
}

// Reset implements commands.Controller
func (d *Device) Reset() {
	d.ui.Reset()
}

// Verbose sets the Device to Verbose mode and increases logging
func (d *Device) Verbose() {
	d.verbose = true
	d.ui.Verbose()
	d.motion.Verbose()
	d.interlock.Verbose()
	println(d.ts(), "Set Verbose Mode")
}

// ReadByte blocks until a byte arrives on the serial port
func (d *Device) ReadByte() (byte, error) {
	for {
		b, err := machine.Serial.ReadByte()
		if err == nil {
			return b, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// Reply writes one line to the host
func (d *Device) Reply(line string) {
	_, err := machine.Serial.Write([]byte(line + "\n"))
	if err != nil {
		println(d.ts(), "error writing reply:", err.Error())
	}
}

// ts returns the uptime for logging
func (d *Device) ts() string {
	return "[" + time.Since(d.startTime).Round(time.Second).String() + "]"
}
