// Package calculator turns patient weight and dosing ratio into an activity,
// and an activity into a draw volume against a decaying source.
package calculator

import (
	"fmt"
	"math"
	"time"

	"github.com/smallbiznis/radiodose/internal/dose/decay"
	"github.com/smallbiznis/radiodose/internal/dose/domain"
)

// RecommendedDose returns weightKg * ratioPerKg expressed in unit.
func RecommendedDose(weightKg, ratioPerKg float64, unit domain.ActivityUnit) (domain.Activity, error) {
	if !positive(weightKg) {
		return domain.Activity{}, fmt.Errorf("%w: weight must be positive and finite, got %v", domain.ErrInvalidInput, weightKg)
	}
	if !positive(ratioPerKg) {
		return domain.Activity{}, fmt.Errorf("%w: dose ratio must be positive and finite, got %v", domain.ErrInvalidInput, ratioPerKg)
	}
	return domain.NewActivity(weightKg*ratioPerKg, unit)
}

// Concentration returns the decay-corrected activity per millilitre left in
// the vial at the given instant. The divisor is the remaining volume, VolumeML
// minus every drawn volume, not the volume the vial was calibrated with.
func Concentration(state domain.SourceState, at time.Time) (domain.Concentration, error) {
	remaining, err := decay.Remaining(state, at)
	if err != nil {
		return 0, err
	}
	return concentration(state, remaining)
}

// RequiredVolume returns the volume that holds target at the given instant.
// It refuses targets above the remaining activity instead of clamping.
func RequiredVolume(target domain.Activity, state domain.SourceState, at time.Time) (domain.Milliliters, error) {
	if target.IsZero() {
		return 0, fmt.Errorf("%w: target activity must be positive", domain.ErrInvalidInput)
	}
	remaining, err := decay.Remaining(state, at)
	if err != nil {
		return 0, err
	}
	c, err := concentration(state, remaining)
	if err != nil {
		return 0, err
	}
	if target.GreaterThan(remaining) {
		return 0, fmt.Errorf("%w: requested %s but only %s remain in source %s",
			domain.ErrInsufficientActivity, target, remaining, state.Source.ID)
	}
	volume := domain.Milliliters(target.MBq() / float64(c))
	if volume > state.RemainingVolume() {
		// Only reachable through rounding when target == remaining.
		volume = state.RemainingVolume()
	}
	return volume, nil
}

// ActivityForVolume returns the activity contained in volume drawn at the
// given instant.
func ActivityForVolume(volume domain.Milliliters, state domain.SourceState, at time.Time) (domain.Activity, domain.Concentration, error) {
	if !volume.Valid() || volume == 0 {
		return domain.Activity{}, 0, fmt.Errorf("%w: draw volume must be positive and finite, got %v", domain.ErrInvalidInput, float64(volume))
	}
	c, err := Concentration(state, at)
	if err != nil {
		return domain.Activity{}, 0, err
	}
	if volume > state.RemainingVolume() {
		return domain.Activity{}, 0, fmt.Errorf("%w: requested %.3f mL but only %.3f mL remain in source %s",
			domain.ErrInsufficientActivity, float64(volume), float64(state.RemainingVolume()), state.Source.ID)
	}
	return c.ActivityIn(volume), c, nil
}

func concentration(state domain.SourceState, remaining domain.Activity) (domain.Concentration, error) {
	if remaining.IsZero() {
		return 0, fmt.Errorf("%w: source %s has no activity left", domain.ErrDepletedSource, state.Source.ID)
	}
	volume := state.RemainingVolume()
	if volume <= 0 {
		return 0, fmt.Errorf("%w: source %s has no volume left", domain.ErrDepletedSource, state.Source.ID)
	}
	return domain.ConcentrationOf(remaining, volume), nil
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
