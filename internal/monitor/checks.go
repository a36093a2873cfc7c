package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/FraudShield1/homeai-bot/internal/alert"
	"github.com/FraudShield1/homeai-bot/internal/entity"
)

// ignoredDomains are entity domains excluded from offline detection:
// they flap by design (media players), are virtual (automations,
// scenes, zones, persons, sun), or are background machinery (updater).
var ignoredDomains = map[string]struct{}{
	"media_player": {},
	"automation":   {},
	"script":       {},
	"scene":        {},
	"zone":         {},
	"person":       {},
	"sun":          {},
	"updater":      {},
}

// checkDoorsWindows tracks entities whose id mentions door or window.
// An entity open past the threshold raises one warning per cooldown
// window; closing it clears the tracking so reopening restarts the
// clock. Caller must hold mu.
func (e *Engine) checkDoorsWindows(ctx context.Context, states []entity.State) {
	now := e.now()
	open := make(map[string]struct{})

	for _, st := range states {
		id := strings.ToLower(st.EntityID)
		if !strings.Contains(id, "door") && !strings.Contains(id, "window") {
			continue
		}
		if !st.IsOpen() {
			continue
		}
		open[st.EntityID] = struct{}{}

		if _, tracked := e.openSince[st.EntityID]; !tracked {
			e.openSince[st.EntityID] = now
		}

		duration := now.Sub(e.openSince[st.EntityID])
		if duration <= e.cfg.DoorOpenThreshold {
			continue
		}

		key := "door_" + st.EntityID
		if e.onCooldown(key) {
			continue
		}

		e.emit(ctx, alert.Alert{
			Type:     alert.TypeDoorOpen,
			EntityID: st.EntityID,
			Message:  fmt.Sprintf("%s has been open for %d minutes", st.FriendlyName(), int(duration.Minutes())),
			Severity: alert.SeverityWarning,
			Actions: []alert.Action{
				{Label: "Close", Ref: "close:" + st.EntityID},
				{Label: "Remind in 1 hour", Ref: "snooze:" + st.EntityID},
				{Label: "Ignore", Ref: "ignore:" + st.EntityID},
			},
		})
		e.setCooldown(key, e.cfg.DoorCooldown)
	}

	// Entities no longer open go back to quiet.
	for id := range e.openSince {
		if _, stillOpen := open[id]; !stillOpen {
			delete(e.openSince, id)
		}
	}
}

// checkMotion alerts on the rising edge only: current state on,
// previous cycle state not on. Caller must hold mu.
func (e *Engine) checkMotion(ctx context.Context, states []entity.State) {
	if !e.cfg.MotionAlertsEnabled {
		return
	}

	for _, st := range states {
		if !strings.Contains(strings.ToLower(st.EntityID), "motion") {
			continue
		}
		if st.State != entity.StateOn {
			continue
		}
		if prev, ok := e.previous[st.EntityID]; ok && prev.State == entity.StateOn {
			continue
		}

		key := "motion_" + st.EntityID
		if e.onCooldown(key) {
			continue
		}

		e.emit(ctx, alert.Alert{
			Type:     alert.TypeMotion,
			EntityID: st.EntityID,
			Message:  "Motion detected: " + st.FriendlyName(),
			Severity: alert.SeverityInfo,
		})
		e.setCooldown(key, e.cfg.MotionCooldown)
	}
}

// wetStates are sensor readings that indicate water.
var wetStates = map[string]struct{}{
	"on":       {},
	"wet":      {},
	"detected": {},
}

// checkWaterLeaks raises a critical alert on every cycle a leak sensor
// reads wet. Leaks are never suppressed by cooldowns. Caller must
// hold mu.
func (e *Engine) checkWaterLeaks(ctx context.Context, states []entity.State) {
	if !e.cfg.WaterLeakAlertsEnabled {
		return
	}

	for _, st := range states {
		id := strings.ToLower(st.EntityID)
		if !strings.Contains(id, "water") && !strings.Contains(id, "leak") {
			continue
		}
		if _, wet := wetStates[st.State]; !wet {
			continue
		}

		e.emit(ctx, alert.Alert{
			Type:     alert.TypeWaterLeak,
			EntityID: st.EntityID,
			Message:  "Water leak detected: " + st.FriendlyName(),
			Severity: alert.SeverityCritical,
			Actions: []alert.Action{
				{Label: "Shut off water", Ref: "shutoff_water"},
				{Label: "False alarm", Ref: "false_alarm:" + st.EntityID},
			},
		})
	}
}

// checkTemperature compares numeric temperature readings against the
// configured bounds. Low and high breaches cool down independently so
// a sensor stuck out of range does not spam every cycle. Every parsed
// reading is also forwarded to the metrics writer. Caller must hold mu.
func (e *Engine) checkTemperature(ctx context.Context, states []entity.State) {
	for _, st := range states {
		if !strings.Contains(strings.ToLower(st.EntityID), "temperature") {
			continue
		}
		if st.IsUnavailable() {
			continue
		}

		value, err := strconv.ParseFloat(st.State, 64)
		if err != nil {
			continue
		}

		if e.metrics != nil {
			e.metrics.WriteTemperature(st.EntityID, value)
		}

		switch {
		case value < e.cfg.TemperatureLow:
			key := "temp_low_" + st.EntityID
			if e.onCooldown(key) {
				continue
			}
			e.emit(ctx, alert.Alert{
				Type:     alert.TypeTemperatureLow,
				EntityID: st.EntityID,
				Message:  fmt.Sprintf("Low temperature: %s is %.1f°C", st.FriendlyName(), value),
				Severity: alert.SeverityWarning,
			})
			e.setCooldown(key, e.cfg.TemperatureCooldown)

		case value > e.cfg.TemperatureHigh:
			key := "temp_high_" + st.EntityID
			if e.onCooldown(key) {
				continue
			}
			e.emit(ctx, alert.Alert{
				Type:     alert.TypeTemperatureHigh,
				EntityID: st.EntityID,
				Message:  fmt.Sprintf("High temperature: %s is %.1f°C", st.FriendlyName(), value),
				Severity: alert.SeverityWarning,
			})
			e.setCooldown(key, e.cfg.TemperatureCooldown)
		}
	}
}

// checkOffline alerts on entities transitioning into unavailable or
// unknown. When more devices are offline than the summary threshold,
// one summary alert replaces the individual ones: mass unavailability
// signals a backend outage, not independent device failures. Caller
// must hold mu.
func (e *Engine) checkOffline(ctx context.Context, states []entity.State) {
	var offline, transitions []entity.State

	for _, st := range states {
		if offlineIgnored(st) {
			continue
		}
		if !st.IsUnavailable() {
			continue
		}
		offline = append(offline, st)

		prev, seen := e.previous[st.EntityID]
		if seen && !prev.IsUnavailable() {
			transitions = append(transitions, st)
		}
	}

	if len(offline) > e.cfg.OfflineSummaryThreshold {
		if !e.onCooldown("offline_summary") {
			e.emit(ctx, alert.Alert{
				Type:     alert.TypeOfflineSummary,
				Message:  fmt.Sprintf("%d devices are offline, the smart-home backend may be down", len(offline)),
				Severity: alert.SeverityWarning,
			})
			e.setCooldown("offline_summary", e.cfg.OfflineSummaryCooldown)
		}
		return
	}

	for _, st := range transitions {
		key := "offline_" + st.EntityID
		if e.onCooldown(key) {
			continue
		}
		e.emit(ctx, alert.Alert{
			Type:     alert.TypeDeviceOffline,
			EntityID: st.EntityID,
			Message:  "Device offline: " + st.FriendlyName(),
			Severity: alert.SeverityInfo,
		})
		e.setCooldown(key, e.cfg.OfflineCooldown)
	}
}

func offlineIgnored(st entity.State) bool {
	if _, ok := ignoredDomains[st.Domain()]; ok {
		return true
	}
	id := strings.ToLower(st.EntityID)
	return strings.Contains(id, "backup") || strings.Contains(id, "slug")
}
