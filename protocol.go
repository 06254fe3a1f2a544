package ivadmin

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Serial command flags understood by the device. Commands are a single flag byte, optionally followed by a
// newline-terminated payload. The device answers each command with a single line.
const (
	CommandRun     byte = 'S' // payload: "<volume>,<minutes>"
	CommandStop    byte = 'X'
	CommandStatus  byte = '?'
	CommandReset   byte = 'Z'
	CommandVerbose byte = 'V'
	CommandHelp    byte = 'H'
)

// Replies written by the device
const (
	ReplyOK      = "ok"
	ReplyRefused = "refused"
	ReplyError   = "error: "
)

// ErrMalformedStatus is returned when a status line cannot be decoded
var ErrMalformedStatus = errors.New("malformed status")

// FormatRun encodes the payload of a CommandRun
func FormatRun(r DosingRequest) string {
	return strconv.FormatFloat(r.VolumeML, 'f', -1, 64) + "," + strconv.FormatInt(r.DurationMinutes, 10)
}

// ParseRun decodes the payload of a CommandRun. Fractional minutes are truncated.
func ParseRun(s string) (DosingRequest, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return DosingRequest{}, ErrInvalidRequest
	}
	return ParseRequest(parts[0], parts[1])
}

// ParseRequest parses volume and minutes from their text form, as they arrive from a query string or the serial link
func ParseRequest(volume, minutes string) (DosingRequest, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(volume), 64)
	if err != nil {
		return DosingRequest{}, ErrInvalidRequest
	}
	m, err := strconv.ParseFloat(strings.TrimSpace(minutes), 64)
	if err != nil || math.IsNaN(m) || m < 0 {
		return DosingRequest{}, ErrInvalidRequest
	}

	r := DosingRequest{VolumeML: v, DurationMinutes: int64(m)}
	if err := r.Validate(); err != nil {
		return DosingRequest{}, err
	}
	return r, nil
}

// FormatStatus encodes a Status as "<volume>,<remaining>,<page>,<tripped>,<running>"
func FormatStatus(s Status) string {
	return StatusText(s) + "," + s.Page.String() + "," + boolStr(s.Tripped) + "," + boolStr(s.Running)
}

// StatusText is the short "<volume>,<remainingSeconds>" form served to browser clients
func StatusText(s Status) string {
	return strconv.FormatFloat(s.VolumeML, 'f', 2, 64) + "," + strconv.FormatInt(s.RemainingSeconds, 10)
}

// ParseStatus decodes a line written by FormatStatus. The short StatusText form is accepted too.
func ParseStatus(line string) (Status, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 2 && len(parts) != 5 {
		return Status{}, ErrMalformedStatus
	}

	var s Status
	var err error
	s.VolumeML, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Status{}, ErrMalformedStatus
	}
	s.RemainingSeconds, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Status{}, ErrMalformedStatus
	}
	if len(parts) == 2 {
		return s, nil
	}

	s.Page, err = ParsePage(parts[2])
	if err != nil {
		return Status{}, ErrMalformedStatus
	}
	s.Tripped = parts[3] == "1"
	s.Running = parts[4] == "1"
	return s, nil
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
