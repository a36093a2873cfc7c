// Package alert defines the alert model, persistence, and delivery
// sinks used by the monitoring engine.
//
// Alerts flow through a Sink fan-out: the repository sink persists
// every alert to SQLite, the MQTT sink publishes it to
// homeai/alert/{type}, and the API layer broadcasts it to WebSocket
// subscribers. A failing sink is logged and skipped so one broken
// delivery path never suppresses the others.
package alert
