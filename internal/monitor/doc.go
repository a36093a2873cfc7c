// Package monitor provides the proactive monitoring engine.
//
// The engine runs one long-lived evaluation loop over periodically
// fetched entity snapshots and emits alerts through an alert.Sink:
//
//   - doors and windows left open past a threshold (with suggested
//     actions and a per-entity cooldown)
//   - motion, on the rising edge only
//   - water leaks, critical and never suppressed
//   - temperature readings outside configured bounds, with independent
//     low/high cooldowns, every reading forwarded to the metrics writer
//   - devices transitioning into unavailable, summarized into a single
//     alert when enough go offline at once to suggest a backend outage
//
// Each tick runs to completion before the next starts, and a failed
// snapshot fetch skips the cycle without touching the previous-state
// map, so transition edges are never fabricated across a gap.
//
// OnPresenceChange is a side entry point: arrival and departure events
// emit informational alerts and trigger the home/away scenes, gated by
// per-user preference flags.
package monitor
