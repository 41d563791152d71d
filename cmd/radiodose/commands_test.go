package main

import (
	"bytes"
	"testing"
	"time"

	dosedomain "github.com/smallbiznis/radiodose/internal/dose/domain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("OTEL_ENABLED", "false")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestGateCommand(t *testing.T) {
	out := run(t, gateCmd(), "--isotope", "f18", "--procedure", "PET/CT Whole Body", "--glucose", "230")
	assert.Contains(t, out, "critical")

	out = run(t, gateCmd(), "--isotope", "f18", "--procedure", "PET/CT Whole Body")
	assert.Contains(t, out, "caution: missing reading")

	out = run(t, gateCmd(), "--isotope", "tc99m", "--procedure", "Bone Scan")
	assert.Equal(t, "clear\n", out)
}

func TestDecayCommand(t *testing.T) {
	out := run(t, decayCmd(),
		"--isotope", "f18",
		"--activity", "1000",
		"--from", "2026-03-02T07:30:00Z",
		"--to", "2026-03-02T09:19:46.2Z",
	)
	assert.Contains(t, out, "500.00 MBq")
}

func TestDoseCommandConfirms(t *testing.T) {
	out := run(t, doseCmd(),
		"--activity", "1000",
		"--volume", "10",
		"--calibrated", "2026-03-02T07:30:00Z",
		"--at", "2026-03-02T07:30:00Z",
		"--weight", "70",
		"--ratio", "3.7",
		"--procedure", "PET/CT Whole Body",
		"--glucose", "100",
		"--confirm",
	)
	assert.Contains(t, out, "recommended:   259.00 MBq")
	assert.Contains(t, out, "volume:        2.590 mL")
	assert.Contains(t, out, "(dose)")
	assert.Contains(t, out, "vial left:     741.00 MBq in 7.410 mL")
}

func TestParseInstant(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	got, err := parseInstant("  ", now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	_, err = parseInstant("yesterday", now)
	assert.Error(t, err)
}

func TestResolveUnit(t *testing.T) {
	i131 := dosedomain.Isotope{ID: "i131", DoseUnit: dosedomain.UnitMCi}
	u, err := resolveUnit("", i131)
	require.NoError(t, err)
	assert.Equal(t, dosedomain.UnitMCi, u)

	u, err = resolveUnit("gbq", i131)
	require.NoError(t, err)
	assert.Equal(t, dosedomain.UnitGBq, u)

	_, err = resolveUnit("rad", i131)
	assert.ErrorIs(t, err, dosedomain.ErrConfiguration)
}
