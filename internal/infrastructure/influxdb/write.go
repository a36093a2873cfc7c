package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTemperature records a temperature reading for an entity.
//
// The monitoring engine calls this for every parsed temperature sensor
// value each tick. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Example:
//
//	client.WriteTemperature("sensor.living_room_temperature", 21.5)
func (c *Client) WriteTemperature(entityID string, celsius float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"temperature",
		map[string]string{
			"entity_id": entityID,
		},
		map[string]interface{}{
			"celsius": celsius,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteAlertCount records that an alert was emitted, tagged by type and
// severity. Counting points per tag pair gives alert-rate dashboards.
func (c *Client) WriteAlertCount(alertType, severity string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"alerts",
		map[string]string{
			"type":     alertType,
			"severity": severity,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteMonitorTick records one monitoring cycle: how long evaluation took
// and how many entities the snapshot contained.
func (c *Client) WriteMonitorTick(duration time.Duration, entities int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"monitor_tick",
		nil,
		map[string]interface{}{
			"duration_ms": float64(duration.Milliseconds()),
			"entities":    entities,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
