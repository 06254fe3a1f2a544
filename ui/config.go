package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/TheBlueOompaLoompa/iv-admin/controller"
)

type ConfigWindow struct {
	app      fyne.App
	OnSubmit func(controller.Config)
}

func NewConfigWindow(app fyne.App) *ConfigWindow {
	return &ConfigWindow{
		app: app,
	}
}

func (cw *ConfigWindow) loadConfigFromPreferences(cfg *controller.Config) {
	prefs := cw.app.Preferences()
	cfg.ServerAddr = prefs.StringWithFallback("serverAddr", cfg.ServerAddr)
	cfg.PresetsFile = prefs.StringWithFallback("presetsFile", cfg.PresetsFile)
}

func (cw *ConfigWindow) saveConfigToPreferences(cfg *controller.Config) {
	prefs := cw.app.Preferences()
	prefs.SetString("serverAddr", cfg.ServerAddr)
	prefs.SetString("presetsFile", cfg.PresetsFile)
}

// Show asks for the server address and presets file, starting from cfg and the saved preferences
func (cw *ConfigWindow) Show(cfg *controller.Config) {
	window := cw.app.NewWindow("IV Admin - Configuration")
	window.Resize(fyne.NewSize(400, 200))
	window.SetCloseIntercept(func() {
		// Treat window close as cancel
		window.Close()
		cw.app.Quit()
	})
	window.Show()

	// Load config from preferences
	cw.loadConfigFromPreferences(cfg)

	serverEntry := widget.NewEntry()
	serverEntry.Bind(binding.BindString(&cfg.ServerAddr))

	presetsEntry := widget.NewEntry()
	presetsEntry.SetPlaceHolder("built-in presets")
	presetsEntry.Bind(binding.BindString(&cfg.PresetsFile))

	submitButton := widget.NewButton("Connect", func() {
		cw.saveConfigToPreferences(cfg)
		cw.OnSubmit(*cfg)
		window.Close()
	})

	validateForm := func() {
		if cfg.ServerAddr != "" {
			submitButton.Enable()
		} else {
			submitButton.Disable()
		}
	}

	serverEntry.OnChanged = func(_ string) { validateForm() }

	// Initial validation
	validateForm()

	form := container.NewVBox(
		widget.NewCard("Configuration", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Server Address:"),
				serverEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Presets File:"),
				presetsEntry,
			),
		)),
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				cw.app.Quit()
			}),
			submitButton,
		),
	)

	window.SetContent(form)
}

// ShowError shows err and quits once it is dismissed
func ShowError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
