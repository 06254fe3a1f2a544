//go:build tinygo

package display

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// OLEDConfig is the wiring of an SSD1306 screen on an I2C bus
type OLEDConfig struct {
	Bus     *machine.I2C
	SDA     machine.Pin
	SCL     machine.Pin
	Address uint16
	Width   int16
	Height  int16
	// Flip mounts the screen upside down
	Flip bool
}

// OLED renders Screens on an SSD1306
type OLED struct {
	dev *ssd1306.Device
}

// NewOLED configures the bus and the screen
func NewOLED(cfg OLEDConfig) (*OLED, error) {
	err := cfg.Bus.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       cfg.SDA,
		SCL:       cfg.SCL,
	})
	if err != nil {
		return nil, err
	}

	var rotation drivers.Rotation = drivers.Rotation0
	if cfg.Flip {
		rotation = drivers.Rotation180
	}

	dev := ssd1306.NewI2C(cfg.Bus)
	dev.Configure(ssd1306.Config{
		Address:  cfg.Address,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Rotation: rotation,
	})
	dev.ClearDisplay()

	return &OLED{dev: dev}, nil
}

// Render implements pages.Display
func (o *OLED) Render(s ivadmin.Screen) error {
	o.dev.ClearBuffer()
	for i, line := range Lines(s) {
		if line == "" {
			continue
		}
		tinyfont.WriteLine(o.dev, &tinyfont.TomThumb, 0, int16(6+i*12), line, white)
	}
	return o.dev.Display()
}
