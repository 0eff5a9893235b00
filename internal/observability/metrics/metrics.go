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
	Interval         time.Duration
}

// Metrics exposes application-level instruments.
type Metrics struct {
	usageWrites      metric.Int64Counter
	usageLiters      metric.Float64Histogram
	alertsGenerated  metric.Int64Counter
	alertsDismissed  metric.Int64Counter
	simulations      metric.Int64Counter
	otpSent          metric.Int64Counter
	otpVerified      metric.Int64Counter
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
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

	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
			zap.Duration("interval", interval),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "aquaalerts"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.usageWrites, "aquaalerts_usage_writes_total", "Daily usage upserts by outcome."},
		{&m.alertsGenerated, "aquaalerts_alerts_generated_total", "Alerts created by kind."},
		{&m.alertsDismissed, "aquaalerts_alerts_dismissed_total", "Alerts dismissed by their owner."},
		{&m.simulations, "aquaalerts_simulations_total", "Simulation batches generated."},
		{&m.otpSent, "aquaalerts_otp_sent_total", "Registration OTP deliveries by result."},
		{&m.otpVerified, "aquaalerts_otp_verified_total", "Registration OTP verifications by result."},
		{&m.rateLimitAllowed, "aquaalerts_rate_limit_allowed_total", "Requests admitted by a rate limiter."},
		{&m.rateLimitDenied, "aquaalerts_rate_limit_denied_total", "Requests rejected by a rate limiter."},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
	}

	m.usageLiters, err = meter.Float64Histogram("aquaalerts_usage_liters",
		metric.WithDescription("Liters recorded per daily usage write."),
		metric.WithUnit("L"),
		metric.WithExplicitBucketBoundaries(50, 100, 150, 200, 250, 300, 400, 600, 1000),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordUsageWrite counts an upsert; outcome is "created" or "updated".
func (m *Metrics) RecordUsageWrite(ctx context.Context, outcome string, simulated bool, liters float64) {
	if m == nil {
		return
	}
	source := "manual"
	if simulated {
		source = "simulation"
	}
	attrs := FilterAttributes(
		attribute.String("outcome", strings.TrimSpace(outcome)),
		attribute.String("source", source),
	)
	m.usageWrites.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.usageLiters.Record(ctx, liters, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordAlertGenerated(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.alertsGenerated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("kind", kind))...))
}

func (m *Metrics) RecordAlertDismissed(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.alertsDismissed.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("kind", kind))...))
}

func (m *Metrics) RecordSimulation(ctx context.Context, days int) {
	if m == nil {
		return
	}
	m.simulations.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.Int("days", days))...))
}

func (m *Metrics) RecordOTPSent(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.otpSent.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("result", result))...))
}

func (m *Metrics) RecordOTPVerified(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.otpVerified.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("result", result))...))
}

func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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

// Owner and email never become labels; cardinality must stay bounded.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":     {},
	"source":      {},
	"kind":        {},
	"days":        {},
	"result":      {},
	"endpoint":    {},
	"reason":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
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
