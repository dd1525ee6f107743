// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes the tool's observability infrastructure: the root
// logrus logger, resolution and injection metrics, health probes for the
// package registry and the version index, and OTLP trace/metric export.
//
// # Structured Logging
//
// Create the root logger:
//
//	log := observability.NewLogger(observability.LoggerConfig{Level: "debug", Format: "json"})
//	log.Infof("Resolving %d plugin request(s)", n)
//
// Correlate log lines of one run:
//
//	ctx = observability.WithInvocationID(ctx, inv.ID)
//	observability.FromContext(ctx).Warn("Resolution failed")
//
// # Prometheus Metrics
//
// Initialize metrics on a private registry:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ResolutionsTotal.WithLabelValues("registry", "success").Inc()
//	metrics.ObserveSnapshot(snapshot.Len(), len(snapshot.Namespaces()), encoding.Len())
//
// Serve them from the diagnostics server:
//
//	mux := http.NewServeMux()
//	observability.RegisterMetricsEndpoint(mux, registry)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(indexDB, registryClient)
//	status := checker.Check(ctx)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:  true,
//		Endpoint: "otel-collector:4317",
//	}, log)
//	defer observability.ShutdownOTel(ctx, providers, log)
//
// # Related Packages
//
//   - pkg/injector: Instruments the injection pipeline with these metrics
//   - pkg/cli: Wires the root logger and the diagnostics server
package observability
