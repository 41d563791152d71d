// Package domain holds the reference data and value types shared by the
// decay clock, dose calculator, safety gate, ledger and allocation queue.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// Isotope is immutable reference data supplied by the isotope catalog.
type Isotope struct {
	ID               string            `mapstructure:"id"`
	Name             string            `mapstructure:"name"`
	HalfLifeSeconds  float64           `mapstructure:"halfLifeSeconds"`
	DoseUnit         ActivityUnit      `mapstructure:"doseUnit"`
	CommonProcedures []string          `mapstructure:"commonProcedures"`
	ImagingProtocols map[string]string `mapstructure:"imagingProtocols"`
	// GlucoseCheckProcedures lists procedures whose protocol mandates a
	// blood glucose reading before injection. "*" applies to every procedure.
	GlucoseCheckProcedures []string `mapstructure:"glucoseCheckProcedures"`
}

// Validate rejects isotope definitions the engine cannot compute with.
func (i Isotope) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: isotope id is required", ErrConfiguration)
	}
	if math.IsNaN(i.HalfLifeSeconds) || math.IsInf(i.HalfLifeSeconds, 0) || i.HalfLifeSeconds <= 0 {
		return fmt.Errorf("%w: isotope %s half-life must be positive, got %v", ErrConfiguration, i.ID, i.HalfLifeSeconds)
	}
	if !i.DoseUnit.Valid() {
		return fmt.Errorf("%w: isotope %s has unknown dose unit %q", ErrConfiguration, i.ID, i.DoseUnit)
	}
	seen := make(map[string]struct{}, len(i.CommonProcedures))
	for _, p := range i.CommonProcedures {
		key := ProcedureKey(p)
		if key == "" {
			return fmt.Errorf("%w: isotope %s has an empty procedure name", ErrConfiguration, i.ID)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: isotope %s lists procedure %q twice", ErrConfiguration, i.ID, p)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// HalfLife returns the half-life as a duration.
func (i Isotope) HalfLife() time.Duration {
	return time.Duration(i.HalfLifeSeconds * float64(time.Second))
}

// RequiresGlucoseCheck reports whether the procedure's protocol mandates
// metabolic screening.
func (i Isotope) RequiresGlucoseCheck(procedure string) bool {
	key := ProcedureKey(procedure)
	for _, p := range i.GlucoseCheckProcedures {
		if p == "*" || ProcedureKey(p) == key {
			return true
		}
	}
	return false
}

// ProtocolNote returns the imaging protocol note for a procedure, if any.
func (i Isotope) ProtocolNote(procedure string) (string, bool) {
	key := ProcedureKey(procedure)
	for name, note := range i.ImagingProtocols {
		if ProcedureKey(name) == key {
			return note, true
		}
	}
	return "", false
}

// ProcedureKey normalizes a procedure name so "PET/CT Whole Body" and
// "pet-ct-whole-body" compare equal.
func ProcedureKey(name string) string {
	return slug.Make(strings.TrimSpace(name))
}

// RadioactiveSource is a calibrated vial. The calibration pair is never
// rewritten; depletion lives in the draw history.
type RadioactiveSource struct {
	ID                 string
	IsotopeID          string
	CalibratedActivity Activity
	CalibrationTime    time.Time
	VolumeML           Milliliters
}

// Validate checks the static fields of a source.
func (s RadioactiveSource) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(s.IsotopeID) == "" {
		return fmt.Errorf("%w: source %s has no isotope", ErrInvalidInput, s.ID)
	}
	if s.CalibratedActivity.IsZero() {
		return fmt.Errorf("%w: source %s calibrated activity must be positive", ErrInvalidInput, s.ID)
	}
	if s.CalibrationTime.IsZero() {
		return fmt.Errorf("%w: source %s calibration time is required", ErrInvalidInput, s.ID)
	}
	if !s.VolumeML.Valid() || s.VolumeML == 0 {
		return fmt.Errorf("%w: source %s volume must be positive", ErrInvalidInput, s.ID)
	}
	return nil
}

// Draw is one past withdrawal as seen by the decay clock: the activity
// measured at the withdrawal instant and the volume removed.
type Draw struct {
	Activity Activity
	Volume   Milliliters
	At       time.Time
}

// SourceState bundles a source with its isotope and draw history.
type SourceState struct {
	Source  RadioactiveSource
	Isotope Isotope
	Draws   []Draw
}

// WithdrawnActivity is the running total of activity removed, each draw
// measured at its own withdrawal instant.
func (s SourceState) WithdrawnActivity() Activity {
	var total Activity
	for _, d := range s.Draws {
		total = total.Add(d.Activity)
	}
	return total
}

// WithdrawnVolume is the total volume removed from the vial.
func (s SourceState) WithdrawnVolume() Milliliters {
	var total Milliliters
	for _, d := range s.Draws {
		total += d.Volume
	}
	return total
}

// RemainingVolume is the liquid left in the vial.
func (s SourceState) RemainingVolume() Milliliters {
	remaining := s.Source.VolumeML - s.WithdrawnVolume()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clone returns a copy whose draw slice can be appended independently.
func (s SourceState) Clone() SourceState {
	draws := make([]Draw, len(s.Draws))
	copy(draws, s.Draws)
	s.Draws = draws
	return s
}
