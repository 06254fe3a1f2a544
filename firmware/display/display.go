// Package display lays out the text shown on the pump's 128x32 screen.
package display

import (
	"strconv"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

// Rows is the number of text rows that fit on the screen
const Rows = 3

// Lines returns the text rows for a Screen, top to bottom
func Lines(s ivadmin.Screen) [Rows]string {
	if s.Tripped {
		return [Rows]string{"EMERGENCY STOP", "Release, then click", "to acknowledge"}
	}

	switch s.Page {
	case ivadmin.PageSetVolume:
		return [Rows]string{formatVolume(s.VolumeML), "Turn to set volume"}
	case ivadmin.PageSetDuration:
		return [Rows]string{strconv.FormatInt(s.Value, 10) + " Minutes", formatVolume(s.VolumeML)}
	case ivadmin.PageDosing:
		return [Rows]string{Clock(s.Value) + " Remaining", formatVolume(s.VolumeML), "Click to STOP"}
	case ivadmin.PageCalibrate:
		return [Rows]string{"Click to start", "calibration"}
	case ivadmin.PageCalibrateSave:
		return [Rows]string{"Calibrating", "Measure the volume", "then reset"}
	default:
		return [Rows]string{}
	}
}

// Clock formats seconds as h:mm:ss
func Clock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := seconds / 60 % 60
	s := seconds % 60
	return strconv.FormatInt(h, 10) + ":" + pad(m) + ":" + pad(s)
}

func pad(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

func formatVolume(ml float64) string {
	return strconv.FormatFloat(ml, 'f', 1, 64) + " mL"
}
