package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	withdrawals       metric.Int64Counter
	withdrawnActivity metric.Float64Counter
	safetyVerdicts    metric.Int64Counter
	sourcesRegistered metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "radiodose"
	}
	meter := provider.Meter(name)

	withdrawals, err := meter.Int64Counter("radiodose_withdrawals_total")
	if err != nil {
		return nil, err
	}
	withdrawnActivity, err := meter.Float64Counter("radiodose_withdrawn_activity_mbq_total", metric.WithUnit("MBq"))
	if err != nil {
		return nil, err
	}
	safetyVerdicts, err := meter.Int64Counter("radiodose_safety_verdicts_total")
	if err != nil {
		return nil, err
	}
	sourcesRegistered, err := meter.Int64Counter("radiodose_sources_registered_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		withdrawals:       withdrawals,
		withdrawnActivity: withdrawnActivity,
		safetyVerdicts:    safetyVerdicts,
		sourcesRegistered: sourcesRegistered,
	}, nil
}

// RecordWithdrawal counts a committed ledger record and its activity.
func (m *Metrics) RecordWithdrawal(ctx context.Context, isotopeID, kind string, activityMBq float64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("isotope_id", strings.TrimSpace(isotopeID)),
		attribute.String("kind", strings.TrimSpace(kind)),
	)
	m.withdrawals.Add(ctx, 1, metric.WithAttributes(attrs...))
	if activityMBq > 0 {
		m.withdrawnActivity.Add(ctx, activityMBq, metric.WithAttributes(attrs...))
	}
}

// RecordSafetyVerdict counts gate outcomes.
func (m *Metrics) RecordSafetyVerdict(ctx context.Context, isotopeID, level string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("isotope_id", strings.TrimSpace(isotopeID)),
		attribute.String("level", strings.TrimSpace(level)),
	)
	m.safetyVerdicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSourceRegistered counts vials entering the ledger.
func (m *Metrics) RecordSourceRegistered(ctx context.Context, isotopeID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("isotope_id", strings.TrimSpace(isotopeID)))
	m.sourcesRegistered.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"isotope_id": {},
	"kind":       {},
	"level":      {},
	"outcome":    {},
	"reason":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Patient and source identifiers never reach a metric.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
