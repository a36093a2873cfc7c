package scene

import (
	"sort"
	"time"
)

// DomainKey identifies a supported action group within a scene. Keys
// outside this closed set are treated as custom actions and dispatch
// through the engine's handler table.
type DomainKey string

const (
	KeyLights   DomainKey = "lights"
	KeyClimate  DomainKey = "climate"
	KeyLocks    DomainKey = "locks"
	KeyCovers   DomainKey = "covers"
	KeySwitches DomainKey = "switches"
	KeyMedia    DomainKey = "media"
)

// domainOrder fixes the execution order of known domain keys so that
// activating the same scene twice drives devices in the same sequence.
var domainOrder = []DomainKey{KeyLights, KeyClimate, KeyLocks, KeyCovers, KeySwitches, KeyMedia}

// entityDomains maps a domain key to the entity ID prefix it targets.
var entityDomains = map[DomainKey]string{
	KeyLights:   "light",
	KeyClimate:  "climate",
	KeyLocks:    "lock",
	KeyCovers:   "cover",
	KeySwitches: "switch",
	KeyMedia:    "media_player",
}

// domainVerbs is the closed verb table: the actions each known domain
// key accepts. Validation rejects anything else.
var domainVerbs = map[DomainKey][]string{
	KeyLights:   {"turn_on", "turn_off"},
	KeyClimate:  {"set_temperature"},
	KeyLocks:    {"lock", "unlock"},
	KeyCovers:   {"open", "close"},
	KeySwitches: {"turn_on", "turn_off"},
	KeyMedia:    {"turn_on", "turn_off"},
}

// IsKnownDomain reports whether key is one of the closed domain keys.
func IsKnownDomain(key string) bool {
	_, ok := entityDomains[DomainKey(key)]
	return ok
}

// ActionSpec describes what a scene does within one domain key.
//
// Rooms and Devices are case-insensitive substring filters against
// entity IDs and friendly names; the sentinel "all" (or an empty list)
// targets every entity in the domain. Except removes matches after the
// inclusion filters.
type ActionSpec struct {
	Action      string   `json:"action"`
	Rooms       []string `json:"rooms,omitempty"`
	Devices     []string `json:"devices,omitempty"`
	Except      []string `json:"except,omitempty"`
	Brightness  *int     `json:"brightness,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Scene is a named, declarative bundle of per-domain actions. Names
// are unique case-insensitively.
type Scene struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Actions     map[string]ActionSpec `json:"actions"`
	CreatedBy   int64                 `json:"created_by"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// DeepCopy creates an independent copy of the Scene. The actions map
// and its slices are cloned so cache entries cannot be mutated through
// returned values.
func (s *Scene) DeepCopy() *Scene {
	if s == nil {
		return nil
	}

	cpy := *s
	if s.Actions != nil {
		cpy.Actions = make(map[string]ActionSpec, len(s.Actions))
		for k, spec := range s.Actions {
			cpy.Actions[k] = spec.deepCopy()
		}
	}
	return &cpy
}

func (a ActionSpec) deepCopy() ActionSpec {
	cpy := a
	cpy.Rooms = cloneStrings(a.Rooms)
	cpy.Devices = cloneStrings(a.Devices)
	cpy.Except = cloneStrings(a.Except)
	if a.Brightness != nil {
		v := *a.Brightness
		cpy.Brightness = &v
	}
	if a.Temperature != nil {
		v := *a.Temperature
		cpy.Temperature = &v
	}
	return cpy
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	cpy := make([]string, len(s))
	copy(cpy, s)
	return cpy
}

// orderedKeys returns the scene's action keys in execution order:
// known domains in their fixed sequence, then custom keys sorted.
func (s *Scene) orderedKeys() []string {
	keys := make([]string, 0, len(s.Actions))
	for _, key := range domainOrder {
		if _, ok := s.Actions[string(key)]; ok {
			keys = append(keys, string(key))
		}
	}

	var custom []string
	for key := range s.Actions {
		if !IsKnownDomain(key) {
			custom = append(custom, key)
		}
	}
	sort.Strings(custom)
	return append(keys, custom...)
}

// ActivationResult captures one scene activation end to end. Success
// reflects the orchestration only: per-device failures land in Failed
// without flipping it.
type ActivationResult struct {
	SceneName  string   `json:"scene_name"`
	Success    bool     `json:"success"`
	Executed   []string `json:"executed"`
	Failed     []string `json:"failed"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`

	// NotFound reports that the scene name did not resolve. Callers
	// branch on this rather than parsing Error.
	NotFound bool `json:"-"`
}

// Activation is the persisted audit record of an ActivationResult.
type Activation struct {
	ID         string    `json:"id"`
	SceneName  string    `json:"scene_name"`
	Source     string    `json:"source"`
	Success    bool      `json:"success"`
	Executed   []string  `json:"executed"`
	Failed     []string  `json:"failed"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
