// Package safety implements the pre-injection glucose screen.
//
// The gate is advisory. It annotates a proposed withdrawal with a verdict for
// the surrounding workflow to act on; it is not an interlock and nothing in
// the engine refuses a withdrawal because of it.
package safety

import "fmt"

// Level grades a verdict.
type Level string

const (
	LevelClear    Level = "clear"
	LevelCaution  Level = "caution"
	LevelCritical Level = "critical"
)

// ReasonMissingReading is reported when a required glucose value is absent.
const ReasonMissingReading = "missing reading"

// Verdict is the gate's annotation for one request.
type Verdict struct {
	Level  Level
	Reason string
}

// Clear reports whether the verdict carries no warning.
func (v Verdict) Clear() bool { return v.Level == LevelClear || v.Level == "" }

// Thresholds are inclusive mg/dL bounds: readings from Caution up to
// Critical are a caution, readings above Critical are critical.
type Thresholds struct {
	CautionMgDl  int32
	CriticalMgDl int32
}

// DefaultThresholds returns 150 / 200 mg/dL.
func DefaultThresholds() Thresholds {
	return Thresholds{CautionMgDl: 150, CriticalMgDl: 200}
}

func (t Thresholds) withDefaults() Thresholds {
	defaults := DefaultThresholds()
	if t.CautionMgDl <= 0 {
		t.CautionMgDl = defaults.CautionMgDl
	}
	if t.CriticalMgDl <= 0 || t.CriticalMgDl < t.CautionMgDl {
		t.CriticalMgDl = defaults.CriticalMgDl
	}
	// Critical never sits below caution, even after falling back.
	if t.CriticalMgDl < t.CautionMgDl {
		t.CriticalMgDl = t.CautionMgDl
	}
	return t
}

// Gate evaluates glucose readings against its thresholds.
type Gate struct {
	thresholds Thresholds
}

// NewGate returns a gate; zero thresholds fall back to the defaults.
func NewGate(t Thresholds) *Gate {
	return &Gate{thresholds: t.withDefaults()}
}

// Thresholds returns the bounds in effect.
func (g *Gate) Thresholds() Thresholds {
	if g == nil {
		return DefaultThresholds()
	}
	return g.thresholds
}

// Evaluate grades a reading. When the procedure does not require a glucose
// check the verdict is always clear.
func (g *Gate) Evaluate(requiresGlucoseCheck bool, glucoseMgDl *int32) Verdict {
	if !requiresGlucoseCheck {
		return Verdict{Level: LevelClear}
	}
	if glucoseMgDl == nil {
		return Verdict{Level: LevelCaution, Reason: ReasonMissingReading}
	}
	t := g.Thresholds()
	value := *glucoseMgDl
	switch {
	case value > t.CriticalMgDl:
		return Verdict{Level: LevelCritical, Reason: fmt.Sprintf("blood glucose %d mg/dL above %d", value, t.CriticalMgDl)}
	case value >= t.CautionMgDl:
		return Verdict{Level: LevelCaution, Reason: fmt.Sprintf("blood glucose %d mg/dL in %d-%d", value, t.CautionMgDl, t.CriticalMgDl)}
	default:
		return Verdict{Level: LevelClear}
	}
}

// Evaluate grades a reading with the default thresholds.
func Evaluate(requiresGlucoseCheck bool, glucoseMgDl *int32) Verdict {
	return NewGate(Thresholds{}).Evaluate(requiresGlucoseCheck, glucoseMgDl)
}
