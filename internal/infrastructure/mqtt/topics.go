package mqtt

import "fmt"

// Topic prefixes for the homeai MQTT hierarchy.
//
// All topics use the scheme: homeai/{category}/{id}
const (
	// TopicPrefix is the base for all homeai topics.
	TopicPrefix = "homeai"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "homeai/system"
)

// Topics provides builders for homeai MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	alertTopic := topics.Alert("water_leak")
//	// Returns: "homeai/alert/water_leak"
type Topics struct{}

// Alert returns the topic for alerts of a given type.
//
// Example: homeai/alert/door_open
func (Topics) Alert(alertType string) string {
	return fmt.Sprintf("%s/alert/%s", TopicPrefix, alertType)
}

// AllAlerts returns a pattern matching every alert topic.
//
// Pattern: homeai/alert/+
func (Topics) AllAlerts() string {
	return fmt.Sprintf("%s/alert/+", TopicPrefix)
}

// SceneActivated returns the topic for scene activation events.
//
// Example: homeai/scene/movie/activated
func (Topics) SceneActivated(sceneName string) string {
	return fmt.Sprintf("%s/scene/%s/activated", TopicPrefix, sceneName)
}

// AllSceneActivations returns a pattern matching all scene activation events.
//
// Pattern: homeai/scene/+/activated
func (Topics) AllSceneActivations() string {
	return fmt.Sprintf("%s/scene/+/activated", TopicPrefix)
}

// Presence returns the topic carrying presence updates for a user.
// Payload: {"user_id": 1, "location": "home"|"away"}
//
// Example: homeai/presence/1
func (Topics) Presence(userID string) string {
	return fmt.Sprintf("%s/presence/%s", TopicPrefix, userID)
}

// AllPresence returns a pattern matching presence updates for every user.
//
// Pattern: homeai/presence/+
func (Topics) AllPresence() string {
	return fmt.Sprintf("%s/presence/+", TopicPrefix)
}

// MonitorStatus returns the topic for periodic monitor status reports.
//
// Example: homeai/monitor/status
func (Topics) MonitorStatus() string {
	return fmt.Sprintf("%s/monitor/status", TopicPrefix)
}

// SystemStatus returns the service status topic used for the online
// announcement and the Last Will.
//
// Example: homeai/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTopics returns a pattern matching all homeai topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: homeai/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
