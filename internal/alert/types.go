package alert

import "time"

// Type classifies what condition raised an alert.
type Type string

const (
	TypeDoorOpen        Type = "door_open"
	TypeMotion          Type = "motion"
	TypeWaterLeak       Type = "water_leak"
	TypeTemperatureLow  Type = "temperature_low"
	TypeTemperatureHigh Type = "temperature_high"
	TypeDeviceOffline   Type = "device_offline"
	TypeOfflineSummary  Type = "offline_summary"
	TypeArrival         Type = "arrival"
	TypeDeparture       Type = "departure"
)

// AllTypes returns every alert type in declaration order.
func AllTypes() []Type {
	return []Type{
		TypeDoorOpen,
		TypeMotion,
		TypeWaterLeak,
		TypeTemperatureLow,
		TypeTemperatureHigh,
		TypeDeviceOffline,
		TypeOfflineSummary,
		TypeArrival,
		TypeDeparture,
	}
}

// Severity ranks how urgently an alert needs attention.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AllSeverities returns every severity in ascending order of urgency.
func AllSeverities() []Severity {
	return []Severity{SeverityInfo, SeverityWarning, SeverityCritical}
}

// Action is a suggested response presented alongside an alert.
// Ref carries a machine-readable hint for clients that want to wire
// the label to an actual operation (e.g. "close:lock.front_door").
type Action struct {
	Label string `json:"label"`
	Ref   string `json:"ref,omitempty"`
}

// Alert is a single notification raised by the monitoring engine.
type Alert struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	EntityID     string    `json:"entity_id,omitempty"`
	Message      string    `json:"message"`
	Severity     Severity  `json:"severity"`
	Actions      []Action  `json:"actions,omitempty"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}
