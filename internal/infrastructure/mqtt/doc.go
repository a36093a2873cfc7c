// Package mqtt provides MQTT client connectivity for the homeai service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the optional event transport: the monitoring engine publishes
// alerts to homeai/alert/{type}, scene activations are announced on
// homeai/scene/{name}/activated, and presence updates arrive on
// homeai/presence/{user} to drive arrival and departure automation.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to presence updates
//	err = client.Subscribe(mqtt.Topics{}.AllPresence(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish an alert
//	client.PublishJSON(mqtt.Topics{}.Alert("door_open"), alertPayload)
package mqtt
