// Package entity defines the shared entity-state model used across the
// monitoring and scene engines.
//
// A State is one entity's snapshot as reported by the Home Assistant
// /api/states endpoint: an entity id ("light.kitchen"), its current state
// string, and an open-ended attribute map. Both engines consume snapshots
// of []State and never mutate them; helpers on State capture the small
// amount of shared interpretation (domain prefix, friendly names, open and
// unavailable state classification).
package entity
