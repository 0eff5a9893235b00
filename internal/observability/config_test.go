package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/aquaalerts/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigNormalizes(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:  "production",
		AppVersion:   " 1.2.0 ",
		OTLPEndpoint: " collector:4317 ",
		Observability: config.ObservabilityConfig{
			LogLevel:           "WARNING",
			OTLPProtocol:       "thrift",
			SamplingRatio:      4,
			MetricsInterval:    10 * time.Millisecond,
			SlowQueryThreshold: time.Second,
		},
	})

	assert.Equal(t, "aquaalerts", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.Equal(t, time.Second, cfg.MetricsInterval)
	assert.Equal(t, time.Second, cfg.SlowQueryThreshold)
	assert.Equal(t, []string{"/health", "/metrics"}, cfg.UntracedRoutes)
}

func TestLoadConfigTracesHealthChecksWhenAsked(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Observability: config.ObservabilityConfig{OTLPProtocol: "http", TraceHealthChecks: true},
	})

	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Empty(t, cfg.UntracedRoutes)
	assert.Equal(t, 15*time.Second, cfg.MetricsInterval)
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{Environment: "test", LogLevel: "info"}.Debug())
	assert.True(t, Config{Environment: "staging", LogLevel: "debug"}.Debug())
	assert.False(t, Config{Environment: "production", LogLevel: "debug"}.Debug())
	assert.False(t, Config{Environment: "staging", LogLevel: "info"}.Debug())
}
