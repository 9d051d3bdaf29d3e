// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package middleware provides HTTP middleware components for the application.

This package implements the two middlewares that internal/httpapi installs
on its status router: request ID tracking and Prometheus metrics
integration. Both have the signature func(http.HandlerFunc) http.HandlerFunc.

Key Components:

  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

	http.HandleFunc("/health",
	    middleware.PrometheusMetrics( // Layer 1: Metrics
	        middleware.RequestID(     // Layer 2: Request tracking
	            handler,              // Layer 3: Handler
	        ),
	    ),
	)

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)

Thread Safety:

All middleware components are thread-safe:
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/httpapi: the router that installs these middlewares
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
