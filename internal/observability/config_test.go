package observability

import (
	"testing"

	"github.com/smallbiznis/radiodose/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigForcesJSONInProduction(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "")

	cfg := LoadConfig(config.Config{Environment: "production", LogFormat: "console", LogLevel: "info"})
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "radiodose", cfg.ServiceName)
	assert.False(t, cfg.Debug())

	cfg = LoadConfig(config.Config{Environment: "development", LogFormat: "console"})
	assert.Equal(t, "console", cfg.LogFormat)
	assert.True(t, cfg.Debug())
}
