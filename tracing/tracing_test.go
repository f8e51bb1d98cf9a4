package tracing

import (
	"context"
	"errors"
	"os"
	"testing"
)

// unsetEnv removes variables for the duration of the test
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestDefaultConfig(t *testing.T) {
	unsetEnv(t, "OTEL_ENVIRONMENT", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLE_RATE")

	cfg := DefaultConfig()

	if cfg.ServiceName != "mediawiki-mcp-server" {
		t.Errorf("Expected ServiceName 'mediawiki-mcp-server', got %q", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "1.0.0" {
		t.Errorf("Expected ServiceVersion '1.0.0', got %q", cfg.ServiceVersion)
	}
	if cfg.Environment != "development" {
		t.Errorf("Expected Environment 'development', got %q", cfg.Environment)
	}
	if cfg.Enabled {
		t.Error("Expected Enabled to be false by default")
	}
	if cfg.OTLPEndpoint != "" {
		t.Errorf("Expected OTLPEndpoint to be empty, got %q", cfg.OTLPEndpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("Expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultConfig_WithEnvVars(t *testing.T) {
	t.Setenv("OTEL_ENVIRONMENT", "production")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	t.Setenv("OTEL_SAMPLE_RATE", "0.25")

	cfg := DefaultConfig()

	if cfg.Environment != "production" {
		t.Errorf("Expected Environment 'production', got %q", cfg.Environment)
	}
	if !cfg.Enabled {
		t.Error("Expected Enabled to be true")
	}
	if cfg.OTLPEndpoint != "localhost:4318" {
		t.Errorf("Expected OTLPEndpoint 'localhost:4318', got %q", cfg.OTLPEndpoint)
	}
	if cfg.SampleRate != 0.25 {
		t.Errorf("Expected SampleRate 0.25, got %f", cfg.SampleRate)
	}
}

func TestDefaultConfig_EnabledByEndpoint(t *testing.T) {
	unsetEnv(t, "OTEL_ENABLED")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	cfg := DefaultConfig()

	if !cfg.Enabled {
		t.Error("Expected Enabled to be true when OTLP endpoint is set")
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestSetup_SampleRates(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
	}{
		{"always sample", 1.0},
		{"never sample", 0.0},
		{"ratio sample", 0.5},
		{"above 1.0", 1.5},
		{"below 0.0", -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
				Environment:    "test",
				Enabled:        true,
				SampleRate:     tt.sampleRate,
			}

			shutdown, err := Setup(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Setup failed: %v", err)
			}
			_ = shutdown(context.Background())
		})
	}
}

func TestSpanHelpers(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test-span")
	if ctx == nil || span == nil {
		t.Fatal("Expected non-nil context and span")
	}

	// None of these should panic on a non-recording span.
	AddToolAttributes(span, "mediawiki_get_page", "read")
	AddWikiAttributes(span, "query", "Go (programming language)")
	AddWikiAttributes(span, "opensearch", "")
	AddPageAttributes(span, "Go", 25039021, 1)
	AddCategoryAttributes(span, []string{"Programming languages"}, 2)
	RecordError(span, nil)
	RecordError(span, errors.New("test error"))
	EndSpan(span, errors.New("done"))
}

func TestTracerName(t *testing.T) {
	if TracerName != "mediawiki-mcp-server" {
		t.Errorf("Expected TracerName 'mediawiki-mcp-server', got %q", TracerName)
	}
	if Tracer() == nil {
		t.Error("Expected tracer to be non-nil")
	}
}
