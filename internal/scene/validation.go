package scene

import (
	"fmt"
	"strings"
)

// Validation constants.
const (
	maxNameLength        = 100
	maxDescriptionLength = 500
	maxActionKeys        = 20
	maxFilterTerms       = 50
	minBrightness        = 1
	maxBrightness        = 100
	minTemperature       = 5.0
	maxTemperature       = 35.0
)

// NormalizeName canonicalizes a scene name for lookups and uniqueness.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate performs comprehensive validation on a scene.
// Returns an error describing the first validation failure found.
func Validate(s *Scene) error {
	if s == nil {
		return ErrInvalidScene
	}

	name := NormalizeName(s.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}

	if len(s.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidScene, maxDescriptionLength)
	}

	if len(s.Actions) == 0 {
		return ErrNoActions
	}
	if len(s.Actions) > maxActionKeys {
		return fmt.Errorf("%w: more than %d action keys", ErrInvalidScene, maxActionKeys)
	}

	for key, spec := range s.Actions {
		if err := validateActionSpec(key, spec); err != nil {
			return err
		}
	}
	return nil
}

func validateActionSpec(key string, spec ActionSpec) error {
	if spec.Action == "" {
		return fmt.Errorf("%w: %q has no action verb", ErrInvalidAction, key)
	}

	// Known domains accept only verbs from the closed table; custom
	// keys take any verb since their handlers interpret it.
	if IsKnownDomain(key) {
		if !verbAllowed(DomainKey(key), spec.Action) {
			return fmt.Errorf("%w: verb %q not supported for %q", ErrInvalidAction, spec.Action, key)
		}
	}

	if len(spec.Rooms)+len(spec.Devices)+len(spec.Except) > maxFilterTerms {
		return fmt.Errorf("%w: %q has more than %d filter terms", ErrInvalidAction, key, maxFilterTerms)
	}

	if spec.Brightness != nil {
		if *spec.Brightness < minBrightness || *spec.Brightness > maxBrightness {
			return fmt.Errorf("%w: brightness %d outside %d-%d", ErrInvalidAction, *spec.Brightness, minBrightness, maxBrightness)
		}
	}

	if spec.Temperature != nil {
		if *spec.Temperature < minTemperature || *spec.Temperature > maxTemperature {
			return fmt.Errorf("%w: temperature %.1f outside %.0f-%.0f", ErrInvalidAction, *spec.Temperature, minTemperature, maxTemperature)
		}
	}

	if DomainKey(key) == KeyClimate && spec.Temperature == nil {
		return fmt.Errorf("%w: climate action requires a temperature", ErrInvalidAction)
	}

	return nil
}

func verbAllowed(key DomainKey, verb string) bool {
	for _, v := range domainVerbs[key] {
		if v == verb {
			return true
		}
	}
	return false
}
