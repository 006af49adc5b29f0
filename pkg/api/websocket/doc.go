// Package websocket provides real-time event streaming via WebSocket.
//
// Clients can connect to /api/v1/pipelines/:id/ws to receive real-time
// updates about pipeline execution.
package websocket
