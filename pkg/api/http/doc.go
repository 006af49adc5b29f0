// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Pipeline submission and cancellation
//   - Status and partial-result queries
//   - Routing node snapshots
//   - Health checks
//   - Prometheus metrics
package http
