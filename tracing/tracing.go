// Package tracing wires OpenTelemetry into the Databricks MCP server. Spans
// cover tool calls, Databricks API fetches, aggregation fan-outs and
// namespace refreshes.
package tracing

import (
	"context"
	"io"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "databricks-mcp-server"

// Config holds tracing configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool

	// OTLPEndpoint selects the OTLP/HTTP exporter. When empty, spans are
	// pretty-printed to Writer.
	OTLPEndpoint string
	Insecure     bool

	// Writer receives stdout-exporter output. Stdout carries the MCP stdio
	// stream, so it defaults to stderr.
	Writer io.Writer

	SampleRate float64
}

// DefaultConfig reads the standard OTEL_* variables
func DefaultConfig(version string) Config {
	return Config{
		ServiceName:    TracerName,
		ServiceVersion: version,
		Environment:    getEnvOrDefault("OTEL_ENVIRONMENT", "development"),
		Enabled:        os.Getenv("OTEL_ENABLED") == "true" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure:       os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") != "false",
		Writer:         os.Stderr,
		SampleRate:     parseRate(os.Getenv("OTEL_TRACES_SAMPLER_ARG"), 1.0),
	}
}

// Setup installs a global tracer provider and returns its shutdown function.
// A disabled config leaves the no-op provider in place.
func Setup(ctx context.Context, config Config) (func(context.Context) error, error) {
	if !config.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			attribute.String("environment", config.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := newExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(config.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, config Config) (sdktrace.SpanExporter, error) {
	if config.OTLPEndpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLPEndpoint)}
		if config.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}

	w := config.Writer
	if w == nil {
		w = os.Stderr
	}
	return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
}

// newSampler honours the parent's decision and samples root spans by rate
func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1.0:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Tracer returns the named tracer for the server
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span with the given name and returns the context and span
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// AddToolAttributes tags a tool call span
func AddToolAttributes(span trace.Span, toolName, service, callID string) {
	span.SetAttributes(
		attribute.String("mcp.tool.name", toolName),
		attribute.String("mcp.tool.service", service),
		attribute.String("mcp.tool.call_id", callID),
	)
}

// AddAPIAttributes tags a Databricks fetch. status is zero when no response
// was received.
func AddAPIAttributes(span trace.Span, endpoint string, attempts, status int) {
	span.SetAttributes(
		attribute.String("databricks.api.endpoint", endpoint),
		attribute.Int("databricks.api.attempts", attempts),
	)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
}

// AddFanoutAttributes records the width of a concurrent aggregation
func AddFanoutAttributes(span trace.Span, resource string, size int) {
	span.SetAttributes(
		attribute.String("databricks.resource", resource),
		attribute.Int("databricks.fanout.size", size),
	)
}

// AddNamespaceAttributes tags a namespace refresh with its outcome
func AddNamespaceAttributes(span trace.Span, tables int, changed bool) {
	span.SetAttributes(
		attribute.Int("databricks.namespace.tables", tables),
		attribute.Bool("databricks.namespace.changed", changed),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseRate(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return rate
}
