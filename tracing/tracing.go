// Package tracing provides OpenTelemetry tracing for the MediaWiki MCP server.
// It configures trace exporters and provides span helpers for tools, API
// requests, page resolution and category traversal.
package tracing

import (
	"context"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "mediawiki-mcp-server"
)

// Config holds tracing configuration
type Config struct {
	ServiceName    string  `env:"OTEL_SERVICE_NAME" env-default:"mediawiki-mcp-server"`
	ServiceVersion string  `env:"OTEL_SERVICE_VERSION" env-default:"1.0.0"`
	Environment    string  `env:"OTEL_ENVIRONMENT" env-default:"development"`
	Enabled        bool    `env:"OTEL_ENABLED" env-default:"false"`
	OTLPEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"` // If set, uses OTLP exporter; otherwise stderr
	SampleRate     float64 `env:"OTEL_SAMPLE_RATE" env-default:"1.0"`
}

// DefaultConfig reads tracing settings from the environment. Setting an OTLP
// endpoint enables tracing on its own.
func DefaultConfig() Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		cfg = Config{
			ServiceName:    TracerName,
			ServiceVersion: "1.0.0",
			Environment:    "development",
			OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SampleRate:     1.0,
		}
	}
	cfg.Enabled = cfg.Enabled || cfg.OTLPEndpoint != ""
	return cfg
}

// Setup initializes OpenTelemetry tracing and returns a shutdown function
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

	// stdout carries the MCP protocol, so the fallback exporter writes to stderr
	var exporter sdktrace.SpanExporter
	if config.OTLPEndpoint != "" {
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(config.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	}
	if err != nil {
		return nil, err
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Tracer returns the named tracer for the server
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span with the given name and returns the context and span
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// AddToolAttributes adds standard tool attributes to a span
func AddToolAttributes(span trace.Span, toolName, category string) {
	span.SetAttributes(
		attribute.String("mcp.tool.name", toolName),
		attribute.String("mcp.tool.category", category),
	)
}

// AddWikiAttributes adds API request attributes to a span
func AddWikiAttributes(span trace.Span, action, page string) {
	span.SetAttributes(attribute.String("wiki.api.action", action))
	if page != "" {
		span.SetAttributes(attribute.String("wiki.page.title", page))
	}
}

// AddPageAttributes records the outcome of a page resolution
func AddPageAttributes(span trace.Span, title string, pageID int, hops int) {
	span.SetAttributes(
		attribute.String("wiki.page.title", title),
		attribute.Int("wiki.page.id", pageID),
		attribute.Int("wiki.page.redirect_hops", hops),
	)
}

// AddCategoryAttributes records the shape of a category tree request
func AddCategoryAttributes(span trace.Span, roots []string, maxDepth int) {
	span.SetAttributes(
		attribute.StringSlice("wiki.category.roots", roots),
		attribute.Int("wiki.category.max_depth", maxDepth),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// EndSpan marks the span status from err and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
