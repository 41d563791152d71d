package logger

import (
	"context"
	"testing"

	"github.com/smallbiznis/radiodose/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaultsToJSON(t *testing.T) {
	assert.Equal(t, "json", normalizeFormat(""))
	assert.Equal(t, "console", normalizeFormat("Console"))
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := correlation.ContextWithCorrelationID(context.Background(), "01HZX")
	ctx = correlation.ContextWithTerminalID(ctx, "terminal-a")

	WithContext(ctx, base).Info("dose confirmed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "01HZX", fields["correlation_id"])
	assert.Equal(t, "terminal-a", fields["terminal_id"])
	assert.Equal(t, "", fields["trace_id"])
}

func TestWithSourceNilSafe(t *testing.T) {
	assert.Nil(t, WithSource(nil, "vial-1", "f18"))
}
