package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TestInitOTel_Disabled tests that InitOTel returns nil when disabled
func TestInitOTel_Disabled(t *testing.T) {
	ctx := context.Background()
	log := NewLogger(LoggerConfig{Level: "error", Output: &bytes.Buffer{}})

	providers, err := InitOTel(ctx, OTelConfig{Enabled: false}, log)

	assert.NoError(t, err)
	assert.Nil(t, providers)
}

// TestShutdownOTel_NilProviders tests shutdown with nil providers
func TestShutdownOTel_NilProviders(t *testing.T) {
	log := NewLogger(LoggerConfig{Level: "error", Output: &bytes.Buffer{}})

	err := ShutdownOTel(context.Background(), nil, log)

	assert.NoError(t, err)
}

// TestShutdownOTel_EmptyProviders tests shutdown with no providers set
func TestShutdownOTel_EmptyProviders(t *testing.T) {
	log := NewLogger(LoggerConfig{Level: "error", Output: &bytes.Buffer{}})

	err := ShutdownOTel(context.Background(), &OTelProviders{}, log)

	assert.NoError(t, err)
}

// TestShutdownOTel_WithTracerProvider tests shutdown with a real tracer provider
func TestShutdownOTel_WithTracerProvider(t *testing.T) {
	log := NewLogger(LoggerConfig{Level: "error", Output: &bytes.Buffer{}})

	providers := &OTelProviders{
		TracerProvider: sdktrace.NewTracerProvider(),
	}

	err := ShutdownOTel(context.Background(), providers, log)

	assert.NoError(t, err)
}

// TestLoggerWithTraceContext_NoSpan tests that no trace fields are added
// without an active span
func TestLoggerWithTraceContext_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggerConfig{Format: FormatJSON, Output: &buf})

	entry := LoggerWithTraceContext(context.Background(), log)
	entry.Info("no active span")

	var logged map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))

	_, hasTrace := logged["trace_id"]
	assert.False(t, hasTrace, "expected no trace_id without an active span")
}

// TestLoggerWithTraceContext_WithSpan tests that trace and span IDs are added
// for a recording span
func TestLoggerWithTraceContext_WithSpan(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggerConfig{Format: FormatJSON, Output: &buf})

	tp := sdktrace.NewTracerProvider()
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "resolve-plugins")
	defer span.End()

	entry := LoggerWithTraceContext(ctx, log)
	entry.Info("with active span")

	var logged map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))

	assert.Equal(t, span.SpanContext().TraceID().String(), logged["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), logged["span_id"])
}

// TestOTelConfig_ZeroValue tests config defaults
func TestOTelConfig_ZeroValue(t *testing.T) {
	var cfg OTelConfig

	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Endpoint)
	assert.Empty(t, cfg.ServiceName)
}
