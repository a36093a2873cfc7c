package entity

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Well-known state strings reported by Home Assistant.
const (
	StateOn          = "on"
	StateOff         = "off"
	StateOpen        = "open"
	StateClosed      = "closed"
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

// State is a single entity snapshot from the /api/states endpoint.
//
// Attributes is kept as a raw map because Home Assistant attribute sets
// vary per integration; callers pull out the keys they understand.
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	LastChanged *time.Time     `json:"last_changed,omitempty"`
}

// Domain returns the entity id prefix before the first dot
// ("light.kitchen" -> "light"). Returns "" for ids without a dot.
func (s State) Domain() string {
	idx := strings.IndexByte(s.EntityID, '.')
	if idx < 0 {
		return ""
	}
	return s.EntityID[:idx]
}

// ObjectID returns the entity id suffix after the first dot
// ("light.kitchen" -> "kitchen"). Returns the full id if there is no dot.
func (s State) ObjectID() string {
	idx := strings.IndexByte(s.EntityID, '.')
	if idx < 0 {
		return s.EntityID
	}
	return s.EntityID[idx+1:]
}

// FriendlyName returns the friendly_name attribute when present, otherwise
// a readable form of the object id ("front_door" -> "Front Door").
func (s State) FriendlyName() string {
	if name, ok := s.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}
	return titleWords(s.ObjectID())
}

// NameMatches reports whether term is a case-insensitive substring of the
// entity id or the friendly name. Scene room and device filters use this
// loose matching so "kitchen" catches both light.kitchen_ceiling and an
// entity whose friendly name is "Kitchen Lamp".
func (s State) NameMatches(term string) bool {
	if term == "" {
		return false
	}
	t := strings.ToLower(term)
	if strings.Contains(strings.ToLower(s.EntityID), t) {
		return true
	}
	return strings.Contains(strings.ToLower(s.FriendlyName()), t)
}

// IsOpen reports whether the state represents an open/triggered binary
// sensor. Binary door sensors report "on", cover-style sensors "open".
func (s State) IsOpen() bool {
	return s.State == StateOn || s.State == StateOpen
}

// IsUnavailable reports whether the entity is unreachable or has no
// meaningful state.
func (s State) IsUnavailable() bool {
	return s.State == StateUnavailable || s.State == StateUnknown
}

func titleWords(objectID string) string {
	words := strings.Split(strings.ReplaceAll(objectID, "_", " "), " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size == 0 || r == utf8.RuneError {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
