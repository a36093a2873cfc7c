// Package api implements the HTTP REST API and WebSocket server for the
// homeai assistant core.
//
// This package provides:
//   - REST endpoints for scene management, activation, and history
//   - An alert inbox with acknowledgement and filtering
//   - The monitoring engine's runtime status
//   - WebSocket hub for real-time alert and scene broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//
// # Architecture
//
// The API server sits between user interfaces (mobile apps, dashboards,
// chat frontends) and the scene and monitoring engines. Scene activations
// run synchronously against the Home Assistant REST API; alerts raised by
// the monitor arrive at clients over the WebSocket "alerts" channel and
// are persisted for later retrieval.
//
// # Graceful Degradation
//
// The server operates without MQTT, InfluxDB, or the monitor engine; the
// affected endpoints report their absence rather than failing at startup.
package api
