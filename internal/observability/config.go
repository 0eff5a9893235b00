package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/aquaalerts/internal/config"
)

const (
	defaultServiceName     = "aquaalerts"
	defaultMetricsInterval = 15 * time.Second
	minMetricsInterval     = time.Second
)

// untracedRoutes are health endpoints that would otherwise dominate sampled traces.
var untracedRoutes = []string{"/health", "/metrics"}

// Config is the normalized view of config.ObservabilityConfig shared by the
// logger, tracer, meter and gorm logger.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
	MetricsInterval      time.Duration

	SlowQueryThreshold time.Duration
	UntracedRoutes     []string
}

func LoadConfig(cfg config.Config) Config {
	obs := cfg.Observability

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	protocol := strings.ToLower(strings.TrimSpace(obs.OTLPProtocol))
	if protocol != "http" {
		protocol = "grpc"
	}

	interval := obs.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}
	if interval < minMetricsInterval {
		interval = minMetricsInterval
	}

	var untraced []string
	if !obs.TraceHealthChecks {
		untraced = append(untraced, untracedRoutes...)
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             normalizeLevel(obs.LogLevel),
		LogFormat:            strings.ToLower(strings.TrimSpace(obs.LogFormat)),
		OtelEnabled:          obs.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    clampRatio(obs.SamplingRatio),
		MetricsInterval:      interval,
		SlowQueryThreshold:   obs.SlowQueryThreshold,
		UntracedRoutes:       untraced,
	}
}

// Debug is on for debug level and for dev/test environments, never in production.
func (c Config) Debug() bool {
	if isProductionEnv(c.Environment) {
		return false
	}
	return c.LogLevel == "debug" || isDevEnv(c.Environment)
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "debug", "info", "warn", "error":
		return level
	case "warning":
		return "warn"
	default:
		return "info"
	}
}

func clampRatio(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func isProductionEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}
