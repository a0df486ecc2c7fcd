// Package httpserver provides the reusable HTTP server shell for launchpad
// components.
//
// BaseServer wires a chi router with standard middleware, request logging,
// health endpoints and lifecycle management; components contribute their
// routes through the RouteRegistrar interface.
//
// # Health and diagnostics
//
// Every server built on BaseServer exposes:
//
//   - /livez: liveness check
//   - /readyz: readiness check, honoring drain state
//   - /drain, /undrain: readiness control for load balancers
//   - /debug: pprof endpoints when enabled
//
// # Lifecycle
//
// RunInBackground starts serving; Shutdown waits for in-flight requests up
// to the configured graceful shutdown duration.
package httpserver
