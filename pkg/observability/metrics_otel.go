package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	// Resolution metrics
	resolutionsTotal   metric.Int64Counter
	resolutionDuration metric.Float64Histogram

	// Registry client metrics
	registryRequests metric.Int64Counter
	registryDuration metric.Float64Histogram

	// Cache metrics
	cacheHitsTotal   metric.Int64Counter
	cacheMissesTotal metric.Int64Counter

	// Injection metrics
	injectionsTotal   metric.Int64Counter
	injectionDuration metric.Float64Histogram
	envVarsEmitted    metric.Int64Histogram
}

// NewOTelMetrics creates a new OTel metrics instance
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/stanzabuild/stanza")

	m := &OTelMetrics{}
	var err error

	m.resolutionsTotal, err = meter.Int64Counter(
		"plugin.resolutions",
		metric.WithDescription("Total number of plugin resolution lookups"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin_resolutions counter: %w", err)
	}

	m.resolutionDuration, err = meter.Float64Histogram(
		"plugin.resolution.duration",
		metric.WithDescription("Plugin resolution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin_resolution_duration histogram: %w", err)
	}

	m.registryRequests, err = meter.Int64Counter(
		"registry.requests",
		metric.WithDescription("Total number of package registry requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry_requests counter: %w", err)
	}

	m.registryDuration, err = meter.Float64Histogram(
		"registry.request.duration",
		metric.WithDescription("Package registry request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry_duration histogram: %w", err)
	}

	m.cacheHitsTotal, err = meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache_hits counter: %w", err)
	}

	m.cacheMissesTotal, err = meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache_misses counter: %w", err)
	}

	m.injectionsTotal, err = meter.Int64Counter(
		"injection.passes",
		metric.WithDescription("Total number of plugin injection passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create injection_passes counter: %w", err)
	}

	m.injectionDuration, err = meter.Float64Histogram(
		"injection.duration",
		metric.WithDescription("Plugin injection pass duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create injection_duration histogram: %w", err)
	}

	m.envVarsEmitted, err = meter.Int64Histogram(
		"injection.env_vars",
		metric.WithDescription("Plugin environment variables emitted per injection pass"),
		metric.WithUnit("{variable}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create injection_env_vars histogram: %w", err)
	}

	return m, nil
}

// RecordResolution records one plugin resolution lookup
func (m *OTelMetrics) RecordResolution(ctx context.Context, source string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("plugin.source", source),
		attribute.Bool("error", err != nil),
	}

	m.resolutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.resolutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRegistryRequest records one package registry request
func (m *OTelMetrics) RecordRegistryRequest(ctx context.Context, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Int("http.status_code", statusCode),
	}

	m.registryRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.registryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit
func (m *OTelMetrics) RecordCacheHit(ctx context.Context, cache string) {
	m.cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", cache)))
}

// RecordCacheMiss records a cache miss
func (m *OTelMetrics) RecordCacheMiss(ctx context.Context, cache string) {
	m.cacheMissesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", cache)))
}

// RecordInjection records one plugin injection pass
func (m *OTelMetrics) RecordInjection(ctx context.Context, command string, eligible bool, envVars int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("tool.command", command),
		attribute.Bool("plugins.eligible", eligible),
	}

	m.injectionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.injectionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if eligible {
		m.envVarsEmitted.Record(ctx, int64(envVars), metric.WithAttributes(attrs...))
	}
}
