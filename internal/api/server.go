// Package api provides the HTTP REST API and WebSocket server for the
// homeai assistant core.
//
// It exposes scene management and activation, the alert inbox, and the
// monitoring engine status to user interfaces (mobile apps, dashboards,
// chat frontends).
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/FraudShield1/homeai-bot/internal/alert"
	"github.com/FraudShield1/homeai-bot/internal/homeassistant"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/config"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/database"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/logging"
	"github.com/FraudShield1/homeai-bot/internal/infrastructure/mqtt"
	"github.com/FraudShield1/homeai-bot/internal/monitor"
	"github.com/FraudShield1/homeai-bot/internal/scene"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Scenes      *scene.Store
	SceneEngine *scene.Engine
	SceneRepo   scene.Repository
	Alerts      alert.Repository
	Monitor     *monitor.Engine
	HA          *homeassistant.Client
	MQTT        *mqtt.Client
	DB          *database.DB
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for the homeai core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	scenes      *scene.Store
	sceneEngine *scene.Engine
	sceneRepo   scene.Repository
	alerts      alert.Repository
	monitor     *monitor.Engine
	ha          *homeassistant.Client
	mqtt        *mqtt.Client
	db          *database.DB
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Scenes == nil {
		return nil, fmt.Errorf("scene store is required")
	}
	if deps.Alerts == nil {
		return nil, fmt.Errorf("alert repository is required")
	}
	// MQTT, InfluxDB and the monitor engine are optional; the affected
	// endpoints degrade rather than fail at startup.

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		scenes:      deps.Scenes,
		sceneEngine: deps.SceneEngine,
		sceneRepo:   deps.SceneRepo,
		alerts:      deps.Alerts,
		monitor:     deps.Monitor,
		ha:          deps.HA,
		mqtt:        deps.MQTT,
		db:          deps.DB,
		version:     deps.Version,
	}

	// Use externally-provided hub if available (needed when the alert sink
	// and scene engine also broadcast through it).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
