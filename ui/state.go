package ui

import (
	"strconv"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
	"github.com/TheBlueOompaLoompa/iv-admin/firmware/display"
)

// statusView is a Status formatted for the console's labels
type statusView struct {
	page      string
	remaining string
	volume    string
	alert     string
	// canStart is false while dosing or tripped
	canStart bool
}

func describe(s ivadmin.Status) statusView {
	v := statusView{
		page:      pageTitle(s.Page),
		remaining: "--:--",
		volume:    strconv.FormatFloat(s.VolumeML, 'f', 2, 64) + " mL",
		canStart:  !s.Tripped && s.Page != ivadmin.PageDosing,
	}

	if s.Page == ivadmin.PageDosing {
		v.remaining = display.Clock(s.RemainingSeconds)
	}

	switch {
	case s.Tripped:
		v.alert = "EMERGENCY STOP: acknowledge on the pump"
	case s.Running && s.Page != ivadmin.PageDosing:
		v.alert = "Motor running"
	}

	return v
}

func pageTitle(p ivadmin.Page) string {
	switch p {
	case ivadmin.PageSetVolume:
		return "Ready"
	case ivadmin.PageSetDuration:
		return "Entering duration"
	case ivadmin.PageDosing:
		return "Dosing"
	case ivadmin.PageCalibrate, ivadmin.PageCalibrateSave:
		return "Calibrating"
	default:
		return "Unknown"
	}
}
