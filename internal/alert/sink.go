package alert

import (
	"context"

	"github.com/FraudShield1/homeai-bot/internal/infrastructure/mqtt"
)

// Sink receives alerts as the monitoring engine raises them.
type Sink interface {
	Notify(ctx context.Context, a Alert) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, a Alert) error

func (f SinkFunc) Notify(ctx context.Context, a Alert) error {
	return f(ctx, a)
}

// Logger is the subset of logging used by sinks.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// MultiSink fans an alert out to every configured sink. A failing sink
// is logged and skipped so one broken delivery path never blocks the
// others. Notify always returns nil.
type MultiSink struct {
	sinks  []Sink
	logger Logger
}

// NewMultiSink creates a fan-out sink. A nil logger is replaced with a
// no-op implementation.
func NewMultiSink(logger Logger, sinks ...Sink) *MultiSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MultiSink{sinks: sinks, logger: logger}
}

func (m *MultiSink) Notify(ctx context.Context, a Alert) error {
	for _, s := range m.sinks {
		if err := s.Notify(ctx, a); err != nil {
			m.logger.Warn("alert sink failed", "type", string(a.Type), "error", err)
		}
	}
	return nil
}

// RepositorySink persists every alert it receives.
type RepositorySink struct {
	repo Repository
}

func NewRepositorySink(repo Repository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Notify(ctx context.Context, a Alert) error {
	return s.repo.Create(ctx, &a)
}

// Publisher is the MQTT surface the broker sink needs.
type Publisher interface {
	PublishJSON(topic string, v any) error
	IsConnected() bool
}

// MQTTSink publishes alerts to homeai/alert/{type}. When the broker is
// down the alert is dropped silently; persistence is the repository's
// job, not the broker's.
type MQTTSink struct {
	pub    Publisher
	topics mqtt.Topics
}

func NewMQTTSink(pub Publisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

func (s *MQTTSink) Notify(_ context.Context, a Alert) error {
	if !s.pub.IsConnected() {
		return nil
	}
	return s.pub.PublishJSON(s.topics.Alert(string(a.Type)), a)
}
