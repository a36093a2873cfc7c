// homeai - proactive home assistant core
//
// This is the main entry point for the homeai service. It wires the
// Home Assistant client, the scene execution engine, the proactive
// monitoring engine, and the REST/WebSocket API into one process:
//   - Scenes orchestrate multi-device state changes from one command
//   - The monitor watches entity snapshots and raises alerts
//   - Presence updates arriving over MQTT trigger away/home automation
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/FraudShield1/homeai-bot/migrations"

	"github.com/FraudShield1/homeai-bot/internal/alert"
	"github.com/FraudShield1/homeai-bot/internal/api"
	"github.com/FraudShield1/homeai-bot/internal/homeassistant"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/config"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/database"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/influxdb"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/logging"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/mqtt"
	"github.com/FraudShield1/homeai-bot/internal/monitor"
	"github.com/FraudShield1/homeai-bot/internal/prefs"
	"github.com/FraudShield1/homeai-bot/internal/scene"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit // Composition root: sequential bring-up of every subsystem
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting homeai",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Home Assistant client
	ha := homeassistant.New(cfg.HomeAssistant, log)
	if err := ha.HealthCheck(ctx); err != nil {
		log.Warn("Home Assistant unreachable at startup, continuing", "error", err)
	} else {
		log.Info("Home Assistant connected", "url", cfg.HomeAssistant.URL)
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Repositories
	sceneRepo := scene.NewSQLiteRepository(db.DB)
	alertRepo := alert.NewSQLiteRepository(db.DB)
	prefStore := prefs.NewSQLiteStore(db.DB)

	// Scene store
	sceneStore := scene.NewStore(sceneRepo)
	sceneStore.SetLogger(log)
	if err := sceneStore.Refresh(ctx); err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}
	if cfg.Scenes.SeedDefaults {
		if err := sceneStore.SeedDefaults(ctx); err != nil {
			return fmt.Errorf("seeding default scenes: %w", err)
		}
	}
	log.Info("scene store initialised", "scenes", sceneStore.Count())

	// WebSocket hub, shared by the API server, the scene engine, and the
	// alert sink.
	hub := api.NewHub(cfg.WebSocket, log)
	hubCtx, hubCancel := context.WithCancel(ctx)
	defer hubCancel()
	go hub.Run(hubCtx)

	// Scene engine
	sceneEngine := scene.NewEngine(sceneStore, ha, ha, sceneRepo, hub, log)
	sceneEngine.SetActionTimeout(cfg.Scenes.ActionTimeout())
	registerCustomHandlers(sceneEngine, ha)
	if mqttClient != nil {
		sceneEngine.SetActivationPublisher(func(result *scene.ActivationResult) {
			topic := mqtt.Topics{}.SceneActivated(result.SceneName)
			if err := mqttClient.PublishJSON(topic, result); err != nil {
				log.Warn("publishing scene activation", "scene", result.SceneName, "error", err)
			}
		})
	}

	// Alert sink fan-out: persist, broadcast to WebSocket clients, and
	// publish over MQTT when a broker is configured.
	sinks := []alert.Sink{
		alert.NewRepositorySink(alertRepo),
		alert.SinkFunc(func(_ context.Context, a alert.Alert) error {
			hub.Broadcast(api.ChannelAlerts, a)
			return nil
		}),
	}
	if influxClient != nil {
		sinks = append(sinks, alert.SinkFunc(func(_ context.Context, a alert.Alert) error {
			influxClient.WriteAlertCount(string(a.Type), string(a.Severity))
			return nil
		}))
	}
	if mqttClient != nil {
		sinks = append(sinks, alert.NewMQTTSink(mqttClient))
	}
	sink := alert.NewMultiSink(log, sinks...)

	// Monitoring engine
	monitorEngine := monitor.NewEngine(monitorConfig(cfg.Monitor), ha, sink, log)
	monitorEngine.SetSceneActivator(sceneEngine)
	monitorEngine.SetPreferenceStore(prefStore)
	if influxClient != nil {
		monitorEngine.SetMetricsWriter(influxClient)
	}
	if mqttClient != nil {
		monitorEngine.SetStatusPublisher(func(st monitor.Status) {
			if err := mqttClient.PublishJSON(mqtt.Topics{}.MonitorStatus(), st); err != nil {
				log.Warn("publishing monitor status", "error", err)
			}
		})
	}
	monitorEngine.Start(ctx)
	defer func() {
		log.Info("stopping monitoring engine")
		monitorEngine.Stop()
	}()
	log.Info("monitoring engine started", "interval", cfg.Monitor.Interval())

	// Presence updates arrive over MQTT and feed the monitor's
	// away/arrival hook.
	if mqttClient != nil {
		if err := subscribePresence(ctx, mqttClient, monitorEngine, log); err != nil {
			log.Warn("presence subscription failed", "error", err)
		}
	}

	// API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Scenes:      sceneStore,
		SceneEngine: sceneEngine,
		SceneRepo:   sceneRepo,
		Alerts:      alertRepo,
		Monitor:     monitorEngine,
		HA:          ha,
		MQTT:        mqttClient,
		DB:          db,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Monitoring engine
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("homeai stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMEAI_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMEAI_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// monitorConfig converts the YAML monitor section into engine thresholds.
func monitorConfig(c config.MonitorConfig) monitor.Config {
	mc := monitor.DefaultConfig()
	if c.IntervalSeconds > 0 {
		mc.Interval = c.Interval()
	}
	if c.DoorOpenThresholdSeconds > 0 {
		mc.DoorOpenThreshold = seconds(c.DoorOpenThresholdSeconds)
	}
	if c.DoorCooldownSeconds > 0 {
		mc.DoorCooldown = seconds(c.DoorCooldownSeconds)
	}
	mc.MotionAlertsEnabled = c.MotionAlertsEnabled
	if c.MotionCooldownSeconds > 0 {
		mc.MotionCooldown = seconds(c.MotionCooldownSeconds)
	}
	mc.WaterLeakAlertsEnabled = c.WaterLeakAlertsEnabled
	mc.TemperatureLow = c.TemperatureLow
	mc.TemperatureHigh = c.TemperatureHigh
	if c.TemperatureCooldownSeconds > 0 {
		mc.TemperatureCooldown = seconds(c.TemperatureCooldownSeconds)
	}
	if c.OfflineCooldownSeconds > 0 {
		mc.OfflineCooldown = seconds(c.OfflineCooldownSeconds)
	}
	if c.OfflineSummaryThreshold > 0 {
		mc.OfflineSummaryThreshold = c.OfflineSummaryThreshold
	}
	if c.OfflineSummaryCooldownSeconds > 0 {
		mc.OfflineSummaryCooldown = seconds(c.OfflineSummaryCooldownSeconds)
	}
	return mc
}

// seconds converts a whole-second config value to a Duration.
func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// registerCustomHandlers installs the non-domain scene action keys the
// seeded scenes reference. "security" arms or disarms the alarm panel;
// "bedroom_light" sets the bedroom lamp without touching other lights.
func registerCustomHandlers(engine *scene.Engine, ha *homeassistant.Client) {
	engine.RegisterCustomHandler("security", func(ctx context.Context, spec scene.ActionSpec) (string, error) {
		service := "alarm_disarm"
		verb := "disarmed"
		if spec.Action == "arm" {
			service = "alarm_arm_away"
			verb = "armed"
		}
		ok, err := ha.CallAction(ctx, "alarm_control_panel", service, "alarm_control_panel.home_alarm", nil)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("alarm panel rejected %s", service)
		}
		return "Security system " + verb, nil
	})

	engine.RegisterCustomHandler("bedroom_light", func(ctx context.Context, spec scene.ActionSpec) (string, error) {
		data := map[string]any{}
		if spec.Brightness != nil {
			data["brightness_pct"] = *spec.Brightness
		}
		ok, err := ha.TurnOn(ctx, "light.bedroom", data)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("bedroom light rejected turn_on")
		}
		return "Bedroom light on", nil
	})
}

// presenceMessage is the payload published on homeai/presence/{user}.
type presenceMessage struct {
	UserID   int64  `json:"user_id"`
	Location string `json:"location"`
}

// subscribePresence wires presence updates from the MQTT bus into the
// monitoring engine's away/arrival hook.
func subscribePresence(ctx context.Context, client *mqtt.Client, engine *monitor.Engine, log *logging.Logger) error {
	topics := mqtt.Topics{}
	return client.Subscribe(topics.AllPresence(), byte(1), func(topic string, payload []byte) error {
		var msg presenceMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn("invalid presence payload", "topic", topic, "error", err)
			return nil
		}
		log.Debug("presence update", "user_id", msg.UserID, "location", msg.Location)
		engine.OnPresenceChange(ctx, msg.UserID, msg.Location)
		return nil
	})
}
