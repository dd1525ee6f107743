package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMeterProvider creates a test meter provider with a manual reader
func setupTestMeterProvider(t *testing.T) (*metric.MeterProvider, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return provider, reader
}

func collectMetricNames(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	byName := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}
	return byName
}

func TestNewOTelMetrics(t *testing.T) {
	provider, _ := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v, want nil", err)
	}
	if m == nil {
		t.Fatal("NewOTelMetrics() returned nil metrics")
	}

	if m.resolutionsTotal == nil {
		t.Error("resolutionsTotal is nil")
	}
	if m.resolutionDuration == nil {
		t.Error("resolutionDuration is nil")
	}
	if m.registryRequests == nil {
		t.Error("registryRequests is nil")
	}
	if m.registryDuration == nil {
		t.Error("registryDuration is nil")
	}
	if m.cacheHitsTotal == nil {
		t.Error("cacheHitsTotal is nil")
	}
	if m.cacheMissesTotal == nil {
		t.Error("cacheMissesTotal is nil")
	}
	if m.injectionsTotal == nil {
		t.Error("injectionsTotal is nil")
	}
	if m.injectionDuration == nil {
		t.Error("injectionDuration is nil")
	}
	if m.envVarsEmitted == nil {
		t.Error("envVarsEmitted is nil")
	}
}

func TestOTelMetrics_RecordResolution(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		duration time.Duration
		err      error
	}{
		{
			name:     "registry success",
			source:   "registry",
			duration: 100 * time.Millisecond,
		},
		{
			name:     "github success",
			source:   "github",
			duration: 250 * time.Millisecond,
		},
		{
			name:     "registry failure",
			source:   "registry",
			duration: 50 * time.Millisecond,
			err:      errors.New("not found"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, reader := setupTestMeterProvider(t)
			defer provider.Shutdown(context.Background())

			m, err := NewOTelMetrics()
			if err != nil {
				t.Fatalf("NewOTelMetrics() error = %v", err)
			}

			m.RecordResolution(context.Background(), tt.source, tt.duration, tt.err)

			byName := collectMetricNames(t, reader)

			counter, ok := byName["plugin.resolutions"]
			if !ok {
				t.Fatal("Resolution counter not recorded")
			}
			if sum, ok := counter.Data.(metricdata.Sum[int64]); ok {
				if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 1 {
					t.Errorf("Expected counter value 1, got %d", sum.DataPoints[0].Value)
				}
			}

			if _, ok := byName["plugin.resolution.duration"]; !ok {
				t.Error("Resolution duration not recorded")
			}
		})
	}
}

func TestOTelMetrics_RecordRegistryRequest(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer provider.Shutdown(context.Background())

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	m.RecordRegistryRequest(context.Background(), 200, 80*time.Millisecond)
	m.RecordRegistryRequest(context.Background(), 503, 30*time.Millisecond)

	byName := collectMetricNames(t, reader)

	counter, ok := byName["registry.requests"]
	if !ok {
		t.Fatal("Registry request counter not recorded")
	}
	if sum, ok := counter.Data.(metricdata.Sum[int64]); ok {
		// One data point per status code
		if len(sum.DataPoints) != 2 {
			t.Errorf("Expected 2 data points, got %d", len(sum.DataPoints))
		}
	}

	if _, ok := byName["registry.request.duration"]; !ok {
		t.Error("Registry request duration not recorded")
	}
}

func TestOTelMetrics_RecordCacheHitAndMiss(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer provider.Shutdown(context.Background())

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordCacheHit(ctx, "versions")
	m.RecordCacheHit(ctx, "versions")
	m.RecordCacheMiss(ctx, "versions")

	byName := collectMetricNames(t, reader)

	hits, ok := byName["cache.hits"]
	if !ok {
		t.Fatal("Cache hit counter not recorded")
	}
	if sum, ok := hits.Data.(metricdata.Sum[int64]); ok {
		if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 2 {
			t.Errorf("Expected 2 cache hits, got %d", sum.DataPoints[0].Value)
		}
	}

	misses, ok := byName["cache.misses"]
	if !ok {
		t.Fatal("Cache miss counter not recorded")
	}
	if sum, ok := misses.Data.(metricdata.Sum[int64]); ok {
		if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 1 {
			t.Errorf("Expected 1 cache miss, got %d", sum.DataPoints[0].Value)
		}
	}
}

func TestOTelMetrics_RecordInjection(t *testing.T) {
	t.Run("eligible pass records env vars", func(t *testing.T) {
		provider, reader := setupTestMeterProvider(t)
		defer provider.Shutdown(context.Background())

		m, err := NewOTelMetrics()
		if err != nil {
			t.Fatalf("NewOTelMetrics() error = %v", err)
		}

		m.RecordInjection(context.Background(), "build", true, 2, 300*time.Millisecond)

		byName := collectMetricNames(t, reader)

		if _, ok := byName["injection.passes"]; !ok {
			t.Error("Injection counter not recorded")
		}
		if _, ok := byName["injection.duration"]; !ok {
			t.Error("Injection duration not recorded")
		}
		if _, ok := byName["injection.env_vars"]; !ok {
			t.Error("Env var histogram not recorded for eligible pass")
		}
	})

	t.Run("ineligible pass skips env vars", func(t *testing.T) {
		provider, reader := setupTestMeterProvider(t)
		defer provider.Shutdown(context.Background())

		m, err := NewOTelMetrics()
		if err != nil {
			t.Fatalf("NewOTelMetrics() error = %v", err)
		}

		m.RecordInjection(context.Background(), "install", false, 0, 5*time.Millisecond)

		byName := collectMetricNames(t, reader)

		if _, ok := byName["injection.passes"]; !ok {
			t.Error("Injection counter not recorded")
		}
		if _, ok := byName["injection.env_vars"]; ok {
			t.Error("Env var histogram should not be recorded for ineligible pass")
		}
	})
}
