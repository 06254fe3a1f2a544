package motion

import (
	"math"
	"time"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

// Calibration converts fluid volume into motor steps. Constant is the volume in mL delivered by a calibration
// run of Steps steps.
type Calibration struct {
	Constant float64
	Steps    float64
	// RPMDivisor converts a step count into the motor speed setting
	RPMDivisor float64

	// FastFlowThreshold is the flow rate in mL/min above which the driver switches to FastMicrostep
	FastFlowThreshold float64
	Microstep         int
	FastMicrostep     int

	// CalibrationRPM is the speed of the calibration run
	CalibrationRPM float64
}

// DefaultCalibration returns the factory calibration
func DefaultCalibration() Calibration {
	return Calibration{
		Constant:          5.26,
		Steps:             50000,
		RPMDivisor:        1600,
		FastFlowThreshold: 40,
		Microstep:         16,
		FastMicrostep:     1,
		CalibrationRPM:    20,
	}
}

// Profile is how the driver is programmed to deliver one DosingRequest
type Profile struct {
	Steps     int64
	RPM       float64
	Microstep int
	Duration  time.Duration
}

// Profile computes the motion for a request. ok is false when there is nothing to move: zero volume, zero
// duration, or a calibration that would produce a non-finite speed.
func (c Calibration) Profile(req ivadmin.DosingRequest) (p Profile, ok bool) {
	if req.Empty() || req.Validate() != nil || c.Constant <= 0 || c.RPMDivisor <= 0 {
		return Profile{}, false
	}

	base := req.VolumeML * c.Steps / c.Constant
	p = Profile{
		Steps:     int64(base),
		RPM:       base / c.RPMDivisor,
		Microstep: c.Microstep,
		Duration:  req.Duration(),
	}

	// Above the threshold, drop to coarser steps. Each step now travels Microstep/FastMicrostep times as
	// far, so fewer are needed for the same volume.
	if req.FlowRate() > c.FastFlowThreshold && c.Microstep > 0 {
		p.Microstep = c.FastMicrostep
		p.Steps = int64(base * float64(c.FastMicrostep) / float64(c.Microstep))
	}

	if math.IsInf(p.RPM, 0) || math.IsNaN(p.RPM) {
		return Profile{}, false
	}

	return p, true
}
