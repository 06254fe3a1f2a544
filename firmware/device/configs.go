//go:build tinygo

package device

import (
	"machine"

	"github.com/TheBlueOompaLoompa/iv-admin/firmware/display"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/motion"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/pages"
)

// EncoderConfig is the wiring of the rotary encoder and its push button. All three are active low.
type EncoderConfig struct {
	A      machine.Pin
	B      machine.Pin
	Button machine.Pin
}

// SafetyConfig has the emergency-stop input, which is pulled up and asserted low, and the buzzer
type SafetyConfig struct {
	Emergency machine.Pin
	Buzzer    machine.Pin
}

// StepperConfig is the wiring of the DRV8834. Enable is active low.
type StepperConfig struct {
	Step       machine.Pin
	Dir        machine.Pin
	Enable     machine.Pin
	M0         machine.Pin
	M1         machine.Pin
	MotorSteps int
}

// Config has everything needed to build a Device
type Config struct {
	Encoder     EncoderConfig
	Safety      SafetyConfig
	Stepper     StepperConfig
	Display     display.OLEDConfig
	Calibration motion.Calibration
	UI          pages.Config
}

// DefaultConfig is the wiring of the Pico-based pump board
func DefaultConfig() Config {
	return Config{
		Encoder: EncoderConfig{
			A:      machine.GP8,
			B:      machine.GP7,
			Button: machine.GP6,
		},
		Safety: SafetyConfig{
			Emergency: machine.GP0,
			Buzzer:    machine.GP28,
		},
		Stepper: StepperConfig{
			Step:       machine.GP19,
			Dir:        machine.GP18,
			Enable:     machine.GP26,
			M0:         machine.GP16,
			M1:         machine.GP22,
			MotorSteps: 200,
		},
		Display: display.OLEDConfig{
			Bus:     machine.I2C0,
			SDA:     machine.GP4,
			SCL:     machine.GP5,
			Address: 0x3C,
			Width:   128,
			Height:  32,
			Flip:    true,
		},
		Calibration: motion.DefaultCalibration(),
		UI:          pages.DefaultConfig(),
	}
}
