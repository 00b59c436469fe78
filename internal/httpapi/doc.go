// Package httpapi exposes the toast queue over HTTP.
//
// REST endpoints under /api/v1 mirror the queue operations, /api/v1/events
// accepts host event envelopes, and /api/v1/stream is a WebSocket that
// pushes the full state after every change. /metrics serves Prometheus
// metrics and /healthz reports liveness.
package httpapi
