// Package homeassistant provides a REST client for the Home Assistant API.
//
// The client is the single gateway to the smart-home installation: the
// monitoring engine reads entity snapshots through FetchAllStates, and the
// scene engine drives devices through CallAction and the convenience verbs
// (TurnOn, SetTemperature, Lock, OpenCover, ...).
//
// # Caching
//
// GET /api/states responses are cached for a short TTL (default 30s) so
// that monitor ticks and scene activations within the window share one
// fetch. Any successful service call invalidates the cache, since the
// call likely changed entity state.
//
// # Security Considerations
//
//   - The long-lived access token is sent as a Bearer header; configure
//     it via HOMEAI_HA_TOKEN rather than the config file
//   - TLS termination is Home Assistant's responsibility; use an https
//     URL for remote instances
package homeassistant
