package domain

import (
	"fmt"
	"math"
	"strings"
)

// ActivityUnit names the unit an activity is expressed in.
type ActivityUnit string

const (
	UnitKBq ActivityUnit = "kBq"
	UnitMBq ActivityUnit = "MBq"
	UnitGBq ActivityUnit = "GBq"
	UnitUCi ActivityUnit = "uCi"
	UnitMCi ActivityUnit = "mCi"
)

// mbqPerUnit holds the MBq equivalent of one unit.
var mbqPerUnit = map[ActivityUnit]float64{
	UnitKBq: 0.001,
	UnitMBq: 1,
	UnitGBq: 1000,
	UnitUCi: 0.037,
	UnitMCi: 37,
}

// ParseActivityUnit normalizes a unit label such as "mbq" or "mCi".
func ParseActivityUnit(raw string) (ActivityUnit, error) {
	value := strings.TrimSpace(raw)
	for unit := range mbqPerUnit {
		if strings.EqualFold(value, string(unit)) {
			return unit, nil
		}
	}
	if strings.EqualFold(value, "µCi") {
		return UnitUCi, nil
	}
	return "", fmt.Errorf("%w: unknown activity unit %q", ErrConfiguration, raw)
}

// Valid reports whether the unit is known.
func (u ActivityUnit) Valid() bool {
	_, ok := mbqPerUnit[u]
	return ok
}

// Activity is an amount of radioactivity. The zero value is 0 MBq.
// Values are stored in MBq so arithmetic never mixes units.
type Activity struct {
	mbq float64
}

// NewActivity builds an activity from an amount expressed in unit.
func NewActivity(amount float64, unit ActivityUnit) (Activity, error) {
	factor, ok := mbqPerUnit[unit]
	if !ok {
		return Activity{}, fmt.Errorf("%w: unknown activity unit %q", ErrInvalidInput, unit)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Activity{}, fmt.Errorf("%w: activity must be finite", ErrInvalidInput)
	}
	if amount < 0 {
		return Activity{}, fmt.Errorf("%w: activity must not be negative", ErrInvalidInput)
	}
	return Activity{mbq: amount * factor}, nil
}

// MBq is a shorthand for activities already known to be valid MBq amounts.
// Negative or non-finite input yields zero.
func MBq(amount float64) Activity {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return Activity{}
	}
	return Activity{mbq: amount}
}

// In returns the amount expressed in unit. Unknown units return NaN.
func (a Activity) In(unit ActivityUnit) float64 {
	factor, ok := mbqPerUnit[unit]
	if !ok {
		return math.NaN()
	}
	return a.mbq / factor
}

// MBq returns the amount in megabecquerel.
func (a Activity) MBq() float64 { return a.mbq }

// IsZero reports whether no activity is present.
func (a Activity) IsZero() bool { return a.mbq == 0 }

// Add sums two activities.
func (a Activity) Add(b Activity) Activity { return Activity{mbq: a.mbq + b.mbq} }

// Scale multiplies the activity by a dimensionless factor (decay, fractions).
func (a Activity) Scale(f float64) Activity { return Activity{mbq: a.mbq * f} }

// GreaterThan compares two activities.
func (a Activity) GreaterThan(b Activity) bool { return a.mbq > b.mbq }

// Format renders the activity in unit, e.g. "280.00 MBq".
func (a Activity) Format(unit ActivityUnit) string {
	return fmt.Sprintf("%.2f %s", a.In(unit), unit)
}

func (a Activity) String() string { return a.Format(UnitMBq) }

// Milliliters is a liquid volume.
type Milliliters float64

// Valid reports whether the volume is finite and not negative.
func (v Milliliters) Valid() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

// Concentration is activity per millilitre, stored in MBq/mL.
type Concentration float64

// ConcentrationOf divides activity by volume. Callers guard against zero volume.
func ConcentrationOf(a Activity, v Milliliters) Concentration {
	return Concentration(a.mbq / float64(v))
}

// ActivityIn returns the activity contained in volume v at this concentration.
func (c Concentration) ActivityIn(v Milliliters) Activity {
	return Activity{mbq: float64(c) * float64(v)}
}

// In returns the concentration expressed as unit per mL.
func (c Concentration) In(unit ActivityUnit) float64 {
	return Activity{mbq: float64(c)}.In(unit)
}
