package ui

import (
	"context"
	"image/color"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
	"github.com/TheBlueOompaLoompa/iv-admin/presets"
)

const (
	pollPeriod = time.Second
	maxLogLen  = 100
)

// PumpUI is the operator console
type PumpUI struct {
	app     fyne.App
	pump    Pump
	presets presets.Presets
	logger  *zap.Logger
}

func NewPumpUI(app fyne.App, pump Pump, p presets.Presets, logger *zap.Logger) *PumpUI {
	return &PumpUI{
		app:     app,
		pump:    pump,
		presets: p,
		logger:  logger,
	}
}

// Show opens the console window. Status polling stops when ctx is done.
func (ui *PumpUI) Show(ctx context.Context) {
	window := ui.app.NewWindow("IV Admin")

	logContent, logAccordion := createLogAccordion()
	var logLines []string
	appendLog := func(line string) {
		ui.logger.Info(line)
		fyne.Do(func() {
			logLines = append(logLines, time.Now().Format(time.TimeOnly)+" "+line)
			if len(logLines) > maxLogLen {
				logLines = logLines[1:]
			}
			logContent.SetText(strings.Join(logLines, "\n"))
		})
	}

	c := &controllerWrapper{pump: ui.pump, log: appendLog}

	volumeEntry := widget.NewEntry()
	volumeEntry.SetPlaceHolder("mL")
	minutesEntry := widget.NewEntry()
	minutesEntry.SetPlaceHolder("minutes")

	patientSelect, medicationSelect := ui.createPresetSelects(volumeEntry, minutesEntry)

	showErr := func(err error) {
		fyne.Do(func() {
			dialog.ShowError(err, window)
		})
	}

	startButton := widget.NewButton("Start", func() {
		volume, minutes := volumeEntry.Text, minutesEntry.Text
		go func() {
			err := c.Start(volume, minutes)
			if err != nil {
				showErr(err)
			}
		}()
	})
	startButton.Importance = widget.HighImportance

	stopButton := widget.NewButton("Stop", func() {
		go func() {
			err := c.Stop()
			if err != nil {
				showErr(err)
			}
		}()
	})
	stopButton.Importance = widget.DangerImportance

	resetButton := widget.NewButton("Reset", func() {
		go func() {
			err := c.Reset()
			if err != nil {
				showErr(err)
			}
		}()
	})

	pageLabel := widget.NewLabel("Connecting...")
	volumeLabel := widget.NewLabel("")
	remainingText := canvas.NewText("--:--", nil)
	remainingText.TextSize = 32
	alertText := canvas.NewText("", color.RGBA{R: 139, G: 0, B: 0, A: 255})
	alertText.TextStyle = fyne.TextStyle{Bold: true}

	var lastErr string
	p := &poller{
		pump:   ui.pump,
		period: pollPeriod,
		onStatus: func(s ivadmin.Status) {
			v := describe(s)
			fyne.Do(func() {
				lastErr = ""
				pageLabel.SetText(v.page)
				volumeLabel.SetText(v.volume)
				remainingText.Text = v.remaining
				remainingText.Refresh()
				alertText.Text = v.alert
				alertText.Refresh()
				if v.canStart {
					startButton.Enable()
				} else {
					startButton.Disable()
				}
			})
		},
		onError: func(err error) {
			fyne.Do(func() {
				pageLabel.SetText("Disconnected")
				if err.Error() != lastErr {
					lastErr = err.Error()
					ui.logger.Warn("error reading status", zap.Error(err))
				}
			})
		},
	}
	p.Go(ctx)

	contentContainer := container.NewVBox(
		container.NewHBox(
			container.NewPadded(remainingText),
			layout.NewSpacer(),
			container.NewVBox(pageLabel, volumeLabel),
		),
		alertText,
		widget.NewCard("Presets", "", container.NewGridWithColumns(2, patientSelect, medicationSelect)),
		widget.NewCard("Dose", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Volume (mL):"),
				volumeEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Duration (min):"),
				minutesEntry,
			),
		)),
		container.NewGridWithColumns(3, startButton, stopButton, resetButton),
		logAccordion,
	)

	window.SetContent(contentContainer)
	window.Resize(fyne.NewSize(360, 420))
	window.Show()
}

// createPresetSelects fills the dose entries whenever both a patient and a medication are chosen
func (ui *PumpUI) createPresetSelects(volumeEntry, minutesEntry *widget.Entry) (*widget.Select, *widget.Select) {
	var patients, medications []string
	for _, p := range ui.presets.Patients {
		patients = append(patients, p.Name+" ("+strconv.FormatFloat(p.MassKG, 'f', -1, 64)+" kg)")
	}
	for _, m := range ui.presets.Medications {
		medications = append(medications, m.Name)
	}

	var patientSelect, medicationSelect *widget.Select
	fill := func(string) {
		pi, mi := patientSelect.SelectedIndex(), medicationSelect.SelectedIndex()
		if pi < 0 || mi < 0 {
			return
		}
		req := ui.presets.Medications[mi].Request(ui.presets.Patients[pi])
		volumeEntry.SetText(strconv.FormatFloat(req.VolumeML, 'f', -1, 64))
		minutesEntry.SetText(strconv.FormatInt(req.DurationMinutes, 10))
	}

	patientSelect = widget.NewSelect(patients, fill)
	patientSelect.PlaceHolder = "Patient"
	medicationSelect = widget.NewSelect(medications, fill)
	medicationSelect.PlaceHolder = "Medication"

	return patientSelect, medicationSelect
}

func createLogAccordion() (*widget.Label, *widget.Accordion) {
	logContent := widget.NewLabel("")
	logScroll := container.NewVScroll(logContent)
	logScroll.SetMinSize(fyne.NewSize(300, 100))

	return logContent, widget.NewAccordion(
		widget.NewAccordionItem("Logs", logScroll),
	)
}
