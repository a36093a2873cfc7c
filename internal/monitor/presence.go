package monitor

import (
	"context"
	"strings"

	"github.com/FraudShield1/homeai-bot/internal/alert"
)

// Preference keys gating the presence hook. Both default to enabled
// when never set.
const (
	prefAutoAway    = "auto_away_mode"
	prefAutoArrival = "auto_arrival_mode"
)

// OnPresenceChange is the side entry point fed by presence detection.
// Subject to the user's preference flags it emits an arrival or
// departure alert and triggers the matching scene. Unknown locations
// are ignored.
func (e *Engine) OnPresenceChange(ctx context.Context, userID int64, location string) {
	switch strings.ToLower(strings.TrimSpace(location)) {
	case "away":
		if !e.presenceEnabled(ctx, userID, prefAutoAway) {
			e.logger.Debug("auto away disabled, skipping", "user_id", userID)
			return
		}
		e.emit(ctx, alert.Alert{
			Type:     alert.TypeDeparture,
			Message:  "Activating away mode",
			Severity: alert.SeverityInfo,
		})
		e.activateScene(ctx, "away")

	case "home":
		if !e.presenceEnabled(ctx, userID, prefAutoArrival) {
			e.logger.Debug("auto arrival disabled, skipping", "user_id", userID)
			return
		}
		e.emit(ctx, alert.Alert{
			Type:     alert.TypeArrival,
			Message:  "Welcome home! Preparing your home",
			Severity: alert.SeverityInfo,
		})
		e.activateScene(ctx, "home")

	default:
		e.logger.Debug("unknown presence location", "user_id", userID, "location", location)
	}
}

func (e *Engine) presenceEnabled(ctx context.Context, userID int64, key string) bool {
	if e.prefs == nil {
		return true
	}
	return e.prefs.GetBool(ctx, userID, key, true)
}

func (e *Engine) activateScene(ctx context.Context, name string) {
	if e.scenes == nil {
		return
	}
	result := e.scenes.Activate(ctx, name, "presence")
	if !result.Success {
		e.logger.Warn("presence scene activation failed", "scene", name, "error", result.Error)
	}
}
