// Package influxdb provides InfluxDB connectivity for the homeai service.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Temperature readings collected each monitoring tick
//   - Alert emission counters (by type and severity)
//   - Monitoring loop timing
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "homeai",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteTemperature("sensor.living_room_temperature", 21.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
