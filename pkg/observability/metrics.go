package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Config metrics
	ConfigLayersLoaded *prometheus.CounterVec
	ConfigEntriesTotal *prometheus.CounterVec
	ConfigErrorsTotal  *prometheus.CounterVec

	// Resolution metrics
	ResolutionsTotal        *prometheus.CounterVec
	ResolutionDuration      *prometheus.HistogramVec
	ResolutionBatchDuration prometheus.Histogram
	ResolutionErrorsTotal   *prometheus.CounterVec

	// Registry client metrics
	RegistryRequestsTotal *prometheus.CounterVec
	RegistryRetriesTotal  prometheus.Counter
	CacheHitsTotal        *prometheus.CounterVec
	CacheMissesTotal      *prometheus.CounterVec

	// Injection metrics
	InjectionsTotal        *prometheus.CounterVec
	InjectionStageDuration *prometheus.HistogramVec

	// Snapshot gauges
	PluginsResolved  prometheus.Gauge
	NamespacesActive prometheus.Gauge
	EnvVarsEmitted   prometheus.Gauge

	// Diagnostics server metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Config metrics
		ConfigLayersLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_config_layers_loaded_total",
				Help: "Total number of plugin config layers loaded",
			},
			[]string{"layer"},
		),
		ConfigEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_config_entries_total",
				Help: "Total number of plugin requests read from config layers",
			},
			[]string{"layer"},
		),
		ConfigErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_config_errors_total",
				Help: "Total number of rejected plugin config files",
			},
			[]string{"layer"},
		),

		// Resolution metrics
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_plugin_resolutions_total",
				Help: "Total number of plugin resolution lookups",
			},
			[]string{"source", "status"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stanza_plugin_resolution_duration_seconds",
				Help:    "Single plugin resolution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		ResolutionBatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stanza_plugin_resolution_batch_duration_seconds",
				Help:    "Whole resolution pass duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		ResolutionErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_plugin_resolution_errors_total",
				Help: "Total number of failed plugin resolutions",
			},
			[]string{"source", "reason"},
		),

		// Registry client metrics
		RegistryRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_registry_requests_total",
				Help: "Total number of package registry requests",
			},
			[]string{"status"},
		),
		RegistryRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stanza_registry_retries_total",
				Help: "Total number of retried registry requests",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		// Injection metrics
		InjectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_injections_total",
				Help: "Total number of plugin injection passes",
			},
			[]string{"command", "outcome"},
		),
		InjectionStageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stanza_injection_stage_duration_seconds",
				Help:    "Injection pipeline stage duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		// Snapshot gauges
		PluginsResolved: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stanza_plugins_resolved",
				Help: "Number of plugins in the last resolved snapshot",
			},
		),
		NamespacesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stanza_namespaces_active",
				Help: "Number of plugin namespaces in the last resolved snapshot",
			},
		),
		EnvVarsEmitted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stanza_env_vars_emitted",
				Help: "Number of plugin environment variables emitted by the last injection",
			},
		),

		// Diagnostics server metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanza_http_requests_total",
				Help: "Total number of diagnostics server requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stanza_http_request_duration_seconds",
				Help:    "Diagnostics server request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.ConfigLayersLoaded,
		m.ConfigEntriesTotal,
		m.ConfigErrorsTotal,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.ResolutionBatchDuration,
		m.ResolutionErrorsTotal,
		m.RegistryRequestsTotal,
		m.RegistryRetriesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.InjectionsTotal,
		m.InjectionStageDuration,
		m.PluginsResolved,
		m.NamespacesActive,
		m.EnvVarsEmitted,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ObserveSnapshot records the gauges describing one resolved snapshot.
func (m *Metrics) ObserveSnapshot(plugins, namespaces, envVars int) {
	m.PluginsResolved.Set(float64(plugins))
	m.NamespacesActive.Set(float64(namespaces))
	m.EnvVarsEmitted.Set(float64(envVars))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments diagnostics server requests
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
