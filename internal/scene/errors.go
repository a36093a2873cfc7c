package scene

import "errors"

// Domain errors for the scene package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, scene.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a scene name does not exist.
	ErrNotFound = errors.New("scene: not found")

	// ErrInvalidScene is returned when scene validation fails.
	ErrInvalidScene = errors.New("scene: invalid")

	// ErrInvalidName is returned when a scene name is empty or too long.
	ErrInvalidName = errors.New("scene: invalid name")

	// ErrInvalidAction is returned when an action spec fails validation.
	ErrInvalidAction = errors.New("scene: invalid action")

	// ErrNoActions is returned when a scene has no actions defined.
	ErrNoActions = errors.New("scene: no actions")
)
