// Package decay implements the decay clock: exponential decay of a source's
// calibrated activity and of every activity already withdrawn from it.
//
// Nothing here reads the wall clock. Every query takes the instant it is
// evaluated at, so results are a pure function of their inputs.
package decay

import (
	"fmt"
	"math"
	"time"

	"github.com/smallbiznis/radiodose/internal/dose/domain"
)

// roundingTolerance is the relative slack under which a negative remaining
// activity is treated as floating-point noise rather than an invariant breach.
const roundingTolerance = 1e-9

// Factor returns 2^(-dt/halfLife). dt may be negative, in which case the
// factor is greater than one.
func Factor(halfLifeSeconds, dtSeconds float64) (float64, error) {
	if math.IsNaN(halfLifeSeconds) || math.IsInf(halfLifeSeconds, 0) || halfLifeSeconds <= 0 {
		return 0, fmt.Errorf("%w: half-life must be positive, got %v", domain.ErrConfiguration, halfLifeSeconds)
	}
	if math.IsNaN(dtSeconds) || math.IsInf(dtSeconds, 0) {
		return 0, fmt.Errorf("%w: elapsed time must be finite", domain.ErrInvalidInput)
	}
	return math.Exp2(-dtSeconds / halfLifeSeconds), nil
}

// Between decays activity a measured at from to the instant to.
func Between(a domain.Activity, iso domain.Isotope, from, to time.Time) (domain.Activity, error) {
	f, err := Factor(iso.HalfLifeSeconds, to.Sub(from).Seconds())
	if err != nil {
		return domain.Activity{}, err
	}
	return a.Scale(f), nil
}

// ActivityAt returns the calibrated activity of source decayed to at,
// ignoring withdrawals.
func ActivityAt(src domain.RadioactiveSource, iso domain.Isotope, at time.Time) (domain.Activity, error) {
	return Between(src.CalibratedActivity, iso, src.CalibrationTime, at)
}

// RemainingActivity decays the calibrated activity to at and subtracts each
// past draw decayed from its own timestamp to at.
func RemainingActivity(src domain.RadioactiveSource, iso domain.Isotope, draws []domain.Draw, at time.Time) (domain.Activity, error) {
	total, err := ActivityAt(src, iso, at)
	if err != nil {
		return domain.Activity{}, err
	}

	var withdrawn float64
	for _, d := range draws {
		decayed, err := Between(d.Activity, iso, d.At, at)
		if err != nil {
			return domain.Activity{}, err
		}
		withdrawn += decayed.MBq()
	}

	remaining := total.MBq() - withdrawn
	if remaining < 0 {
		if -remaining <= roundingTolerance*total.MBq() {
			return domain.Activity{}, nil
		}
		return domain.Activity{}, fmt.Errorf("%w: source %s withdrawals exceed its activity at %s by %.6f MBq",
			domain.ErrInsufficientActivity, src.ID, at.Format(time.RFC3339), -remaining)
	}
	return domain.MBq(remaining), nil
}

// Remaining is RemainingActivity for a bundled source state.
func Remaining(state domain.SourceState, at time.Time) (domain.Activity, error) {
	return RemainingActivity(state.Source, state.Isotope, state.Draws, at)
}
