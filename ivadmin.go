package ivadmin

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidRequest is returned when a DosingRequest has a negative or non-finite volume or a negative duration
var ErrInvalidRequest = errors.New("invalid dosing request")

// Page is the screen that the device's rotary UI is showing
type Page int

const (
	PageSetVolume Page = iota
	PageSetDuration
	PageDosing
	PageCalibrate
	PageCalibrateSave
)

func (p Page) String() string {
	switch p {
	case PageSetVolume:
		return "set-volume"
	case PageSetDuration:
		return "set-duration"
	case PageDosing:
		return "dosing"
	case PageCalibrate:
		return "calibrate"
	case PageCalibrateSave:
		return "calibrate-save"
	default:
		return "unknown"
	}
}

// ParsePage is the inverse of Page.String
func ParsePage(s string) (Page, error) {
	for p := PageSetVolume; p <= PageCalibrateSave; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return PageSetVolume, errors.New("unknown page: " + s)
}

// MarshalText encodes the Page by name so it is readable in JSON
func (p Page) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Page) UnmarshalText(b []byte) error {
	parsed, err := ParsePage(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// OnRelease returns the Page that a button release leads to. CalibrateSave is terminal until the
// device is reset externally.
func (p Page) OnRelease() Page {
	switch p {
	case PageSetVolume:
		return PageSetDuration
	case PageSetDuration:
		return PageDosing
	case PageDosing:
		return PageSetVolume
	case PageCalibrate:
		return PageCalibrateSave
	case PageCalibrateSave:
		return PageCalibrateSave
	default:
		return PageSetVolume
	}
}

// DosingRequest is the volume to deliver and the time to deliver it over. A new request replaces
// the previous one, it is never modified in place.
type DosingRequest struct {
	VolumeML        float64 `json:"volume"`
	DurationMinutes int64   `json:"minutes"`
}

// Validate checks the request's values. Zero volume or zero duration are valid: they complete immediately.
func (r DosingRequest) Validate() error {
	if math.IsNaN(r.VolumeML) || math.IsInf(r.VolumeML, 0) || r.VolumeML < 0 {
		return ErrInvalidRequest
	}
	if r.DurationMinutes < 0 {
		return ErrInvalidRequest
	}
	return nil
}

// Empty is true when there is nothing to deliver
func (r DosingRequest) Empty() bool {
	return r.VolumeML <= 0 || r.DurationMinutes <= 0
}

// FlowRate is the requested flow in mL/min. It is 0 for a zero duration.
func (r DosingRequest) FlowRate() float64 {
	if r.DurationMinutes <= 0 {
		return 0
	}
	return r.VolumeML / float64(r.DurationMinutes)
}

// Duration returns the requested delivery time
func (r DosingRequest) Duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}

// Status is what the device publishes for the network collaborator to answer status queries
type Status struct {
	VolumeML         float64 `json:"volume"`
	RemainingSeconds int64   `json:"remainingSeconds"`
	Page             Page    `json:"page"`
	Tripped          bool    `json:"tripped"`
	Running          bool    `json:"running"`
}

// Screen is a snapshot of what the display should show. Value holds the encoder accumulator on the
// entry pages and the remaining seconds while dosing. VolumeML is the volume being entered on the volume
// page and the requested volume elsewhere.
type Screen struct {
	Page     Page
	Value    int64
	VolumeML float64
	Tripped  bool
}
