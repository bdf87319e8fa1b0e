package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config configures metrics and tracing. DefaultConfig reads it from the
// environment.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled turns on the OpenTelemetry SDK (INSTRUMENTATION_ENABLED).
	// When false every recorder is a no-op.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is none, otlp or stdout.
	TracingExporter string

	// OTLPEndpoint is the collector URL, e.g. http://localhost:4318.
	OTLPEndpoint string

	// OTLPInsecure allows a plain HTTP collector. Spans carry tool names and
	// Zendesk endpoint classes, so keep it off outside local development.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio in [0, 1].
	TraceSamplingRate float64

	PrometheusEndpoint string

	// DetailedLabels adds the tool label to envelope metrics.
	DetailedLabels bool
}

// DefaultConfig returns the configuration given by the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:        envOr("OTEL_SERVICE_NAME", "mcp-zendesk", parseString),
		ServiceVersion:     "unknown",
		Enabled:            envOr("INSTRUMENTATION_ENABLED", false, strconv.ParseBool),
		MetricsExporter:    envOr("METRICS_EXPORTER", MetricsExporterPrometheus, parseString),
		TracingExporter:    envOr("TRACING_EXPORTER", TracingExporterNone, parseString),
		OTLPEndpoint:       envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "", parseString),
		OTLPInsecure:       envOr("OTEL_EXPORTER_OTLP_INSECURE", false, strconv.ParseBool),
		TraceSamplingRate:  envOr("OTEL_TRACES_SAMPLER_ARG", 0.1, parseFloat),
		PrometheusEndpoint: envOr("PROMETHEUS_ENDPOINT", "/metrics", parseString),
		DetailedLabels:     envOr("METRICS_DETAILED_LABELS", false, strconv.ParseBool),
	}
}

// Validate checks if the configuration is valid.
// Unknown exporters are rejected; everything else is handled leniently.
func (c *Config) Validate() error {
	switch c.MetricsExporter {
	case "", MetricsExporterPrometheus, MetricsExporterOTLP, MetricsExporterStdout:
	default:
		return fmt.Errorf("unsupported metrics exporter %q", c.MetricsExporter)
	}
	switch c.TracingExporter {
	case "", TracingExporterNone, TracingExporterOTLP, TracingExporterStdout:
	default:
		return fmt.Errorf("unsupported tracing exporter %q", c.TracingExporter)
	}
	if c.Enabled && c.TracingExporter == TracingExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP tracing requires OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0 and 1, got %v", c.TraceSamplingRate)
	}
	return nil
}

// envOr returns the parsed value of key, or def when key is unset or does
// not parse.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func parseString(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// Exporter names.
const (
	MetricsExporterPrometheus = "prometheus"
	MetricsExporterOTLP       = "otlp"
	MetricsExporterStdout     = "stdout"

	TracingExporterNone   = "none"
	TracingExporterOTLP   = "otlp"
	TracingExporterStdout = "stdout"
)

// Metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// DefaultMetricInterval is the export period of push exporters.
const DefaultMetricInterval = 10 * time.Second
