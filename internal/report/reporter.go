// Package report is the categorized sink for command processing failures.
// Publishing is fire-and-forget: a broken error channel must never become a
// second source of outage, so every failure inside the reporter is swallowed.
package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Category classifies a failure for downstream consumers.
type Category string

const (
	CategoryInvalidMessage Category = "InvalidMessage"
	CategoryUnknownCommand Category = "UnknownCommand"
	CategoryTransport      Category = "Transport"
	CategoryUnhandled      Category = "Unhandled"
)

// Event is one published failure. Events are ephemeral; nothing reads them
// back inside the service.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers an encoded event to the external sink.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Notifier receives a copy of every event for live observation.
type Notifier interface {
	NotifyError(event Event)
}

// Reporter publishes categorized error events to an MQTT error topic.
// A Reporter with no publisher, or one built from a configuration that
// disables error publishing, drops events silently.
type Reporter struct {
	publisher Publisher
	notifier  Notifier
	topic     string
	active    bool
	logger    *zap.Logger
}

// Option configures optional reporter collaborators.
type Option func(*Reporter)

// WithNotifier mirrors every event to a live observer such as the
// websocket hub.
func WithNotifier(n Notifier) Option {
	return func(r *Reporter) {
		r.notifier = n
	}
}

// NewReporter builds a reporter that publishes to topic. An empty topic or
// nil publisher deactivates publishing; events are still logged and
// mirrored to the notifier.
func NewReporter(publisher Publisher, topic string, logger *zap.Logger, opts ...Option) *Reporter {
	r := &Reporter{
		publisher: publisher,
		topic:     topic,
		active:    publisher != nil && topic != "",
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Publish records one categorized failure. It never returns an error and
// never panics, whatever the sink does.
func (r *Reporter) Publish(category Category, message string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("error sink panicked", zap.Any("panic", rec))
		}
	}()

	event := Event{
		ID:        uuid.New(),
		Category:  category,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	r.logger.Debug("publishing error event",
		zap.String("category", string(category)),
		zap.String("message", message))

	if r.notifier != nil {
		r.notifier.NotifyError(event)
	}

	if !r.active {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("failed to encode error event", zap.Error(err))
		return
	}

	if err := r.publisher.Publish(r.topic, payload); err != nil {
		r.logger.Warn("failed to publish error event",
			zap.String("topic", r.topic), zap.Error(err))
	}
}
