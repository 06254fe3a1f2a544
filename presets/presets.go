// Package presets computes dosing requests from patient and medication presets
package presets

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
)

//go:embed default.yaml
var defaultPresets []byte

// Patient is someone receiving a dose
type Patient struct {
	Name   string  `yaml:"name"`
	MassKG float64 `yaml:"mass_kg"`
}

// Medication scales a dose by the patient's mass
type Medication struct {
	Name string `yaml:"name"`
	// MLPerKG is the volume given per kg of body mass
	MLPerKG float64 `yaml:"ml_per_kg"`
	// KGPerMinute sets the duration: one minute for every KGPerMinute kg of body mass
	KGPerMinute float64 `yaml:"kg_per_minute"`
}

// Presets is the list of known patients and medications
type Presets struct {
	Patients    []Patient    `yaml:"patients"`
	Medications []Medication `yaml:"medications"`
}

// Default returns the built-in presets
func Default() (Presets, error) {
	return Parse(defaultPresets)
}

// Load reads presets from a YAML file. An empty path loads the defaults.
func Load(path string) (Presets, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Presets{}, fmt.Errorf("error reading presets: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML presets
func Parse(data []byte) (Presets, error) {
	var p Presets
	err := yaml.Unmarshal(data, &p)
	if err != nil {
		return Presets{}, fmt.Errorf("error parsing presets: %w", err)
	}

	err = p.Validate()
	if err != nil {
		return Presets{}, err
	}
	return p, nil
}

// Validate checks for empty or duplicate names and values that cannot produce a dose
func (p Presets) Validate() error {
	var errs []error

	patients := map[string]bool{}
	for _, pt := range p.Patients {
		switch {
		case pt.Name == "":
			errs = append(errs, errors.New("patient with no name"))
		case patients[pt.Name]:
			errs = append(errs, fmt.Errorf("duplicate patient %q", pt.Name))
		case !(pt.MassKG > 0):
			errs = append(errs, fmt.Errorf("patient %q: mass must be positive", pt.Name))
		}
		patients[pt.Name] = true
	}

	medications := map[string]bool{}
	for _, m := range p.Medications {
		switch {
		case m.Name == "":
			errs = append(errs, errors.New("medication with no name"))
		case medications[m.Name]:
			errs = append(errs, fmt.Errorf("duplicate medication %q", m.Name))
		case !(m.MLPerKG >= 0):
			errs = append(errs, fmt.Errorf("medication %q: ml_per_kg must not be negative", m.Name))
		case !(m.KGPerMinute > 0):
			errs = append(errs, fmt.Errorf("medication %q: kg_per_minute must be positive", m.Name))
		}
		medications[m.Name] = true
	}

	return errors.Join(errs...)
}

// Patient finds a patient by name
func (p Presets) Patient(name string) (Patient, bool) {
	for _, pt := range p.Patients {
		if pt.Name == name {
			return pt, true
		}
	}
	return Patient{}, false
}

// Medication finds a medication by name
func (p Presets) Medication(name string) (Medication, bool) {
	for _, m := range p.Medications {
		if m.Name == name {
			return m, true
		}
	}
	return Medication{}, false
}

// Request is the dose of m for pt. Minutes are rounded down.
func (m Medication) Request(pt Patient) ivadmin.DosingRequest {
	return ivadmin.DosingRequest{
		VolumeML:        pt.MassKG * m.MLPerKG,
		DurationMinutes: int64(math.Floor(pt.MassKG / m.KGPerMinute)),
	}
}

// Request looks up both presets by name and computes the dose
func (p Presets) Request(patient, medication string) (ivadmin.DosingRequest, error) {
	pt, ok := p.Patient(patient)
	if !ok {
		return ivadmin.DosingRequest{}, fmt.Errorf("unknown patient %q", patient)
	}
	m, ok := p.Medication(medication)
	if !ok {
		return ivadmin.DosingRequest{}, fmt.Errorf("unknown medication %q", medication)
	}
	return m.Request(pt), nil
}
