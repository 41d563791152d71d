package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func reading(v int32) *int32 { return &v }

func TestEvaluateThresholds(t *testing.T) {
	cases := []struct {
		name    string
		glucose *int32
		want    Level
	}{
		{"critical", reading(210), LevelCritical},
		{"just above critical", reading(201), LevelCritical},
		{"upper caution bound", reading(200), LevelCaution},
		{"caution", reading(160), LevelCaution},
		{"lower caution bound", reading(150), LevelCaution},
		{"clear", reading(90), LevelClear},
		{"missing", nil, LevelCaution},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(true, tc.glucose)
			assert.Equal(t, tc.want, got.Level)
		})
	}
}

func TestMissingReadingReason(t *testing.T) {
	got := Evaluate(true, nil)
	assert.Equal(t, ReasonMissingReading, got.Reason)
}

func TestNotRequiredIsAlwaysClear(t *testing.T) {
	assert.True(t, Evaluate(false, reading(400)).Clear())
	assert.True(t, Evaluate(false, nil).Clear())
}

func TestCustomThresholds(t *testing.T) {
	g := NewGate(Thresholds{CautionMgDl: 120, CriticalMgDl: 180})
	assert.Equal(t, LevelCaution, g.Evaluate(true, reading(130)).Level)
	assert.Equal(t, LevelCritical, g.Evaluate(true, reading(181)).Level)

	// inverted bounds fall back to the default critical threshold
	g = NewGate(Thresholds{CautionMgDl: 190, CriticalMgDl: 100})
	assert.Equal(t, int32(200), g.Thresholds().CriticalMgDl)
}

func TestCriticalFallbackNeverBelowCaution(t *testing.T) {
	g := NewGate(Thresholds{CautionMgDl: 250})
	assert.Equal(t, int32(250), g.Thresholds().CriticalMgDl)
	assert.Equal(t, LevelClear, g.Evaluate(true, reading(240)).Level)
	assert.Equal(t, LevelCaution, g.Evaluate(true, reading(250)).Level)
	assert.Equal(t, LevelCritical, g.Evaluate(true, reading(251)).Level)

	g = NewGate(Thresholds{CautionMgDl: 300, CriticalMgDl: 220})
	assert.Equal(t, int32(300), g.Thresholds().CriticalMgDl)
	assert.Equal(t, LevelCaution, g.Evaluate(true, reading(300)).Level)
}
