// Package httputil provides middleware for the watch-mode diagnostics listener.
//
// # Overview
//
// When stanza runs with --watch and --metrics-addr, it serves Prometheus
// metrics and health probes from the build process itself. This package
// carries the middleware those endpoints share: request logging and panic
// recovery.
//
// # Middleware
//
// Both constructors return plain func(http.Handler) http.Handler values,
// so they slot directly into a gorilla/mux router:
//
//	router.Use(
//		httputil.Recovery(log),
//		httputil.RequestLogging(log),
//	)
//
// RequestLogging records method, path, status, and duration at debug level.
// Recovery converts a handler panic into a 500 response and logs the stack,
// keeping the probe endpoints from taking the watch loop down with them.
//
// # Related Packages
//
//   - pkg/observability: Health checker and metrics served behind this middleware
package httputil
