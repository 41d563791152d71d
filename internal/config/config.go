package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	LogLevel  string
	LogFormat string

	OTLPEndpoint string
	OTLPProtocol string
	OtelEnabled  bool

	// IsotopeCatalogPath points at an isotopes.yml file. Empty means the
	// standard search paths are used.
	IsotopeCatalogPath string

	// TerminalNodeID seeds the snowflake node used for withdrawal record IDs.
	// Each dispensing terminal sharing a ledger export needs its own value.
	TerminalNodeID int64

	Glucose GlucoseConfig
}

// GlucoseConfig overrides the safety gate thresholds in mg/dL.
type GlucoseConfig struct {
	CautionMgDl  int32
	CriticalMgDl int32
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:            getenv("APP_SERVICE", "radiodose"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        getenv("ENVIRONMENT", "development"),
		LogLevel:           strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getenv("LOG_FORMAT", "json")),
		OTLPEndpoint:       getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPProtocol:       strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelEnabled:        getenvBool("OTEL_ENABLED", false),
		IsotopeCatalogPath: strings.TrimSpace(getenv("ISOTOPE_CATALOG_PATH", "")),
		TerminalNodeID:     getenvInt64("TERMINAL_NODE_ID", 1),
		Glucose: GlucoseConfig{
			CautionMgDl:  int32(getenvInt64("GLUCOSE_CAUTION_MGDL", 150)),
			CriticalMgDl: int32(getenvInt64("GLUCOSE_CRITICAL_MGDL", 200)),
		},
	}
}

// IsProduction reports whether the engine runs in a clinical deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewIsotopeCatalogHolderFromConfig,
	),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
