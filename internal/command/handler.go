package command

import (
	"errors"

	"go.uber.org/zap"

	"github.com/openfieldbus/commandbridge/internal/dispatch"
	"github.com/openfieldbus/commandbridge/internal/mapping"
	"github.com/openfieldbus/commandbridge/internal/report"
	"github.com/openfieldbus/commandbridge/internal/types"
)

// Dispatcher consumes one transformed command.
type Dispatcher interface {
	WriteCommand(cmd dispatch.Command) (int, error)
}

// Reporter is the categorized failure sink.
type Reporter interface {
	Publish(category report.Category, message string)
}

// Events observes successful dispatches, e.g. the websocket hub.
type Events interface {
	CommandDispatched(action string, count int)
}

// Handler owns the message-processing boundary: one inbound payload in, all
// resulting writes out, every failure categorized. A batch is all-or-nothing
// up to dispatch: any item failing validation or transform aborts the whole
// batch before a single write is issued.
type Handler struct {
	store      *mapping.Store
	dispatcher Dispatcher
	reporter   Reporter
	logger     *zap.Logger
	events     Events
}

// Option configures optional handler collaborators.
type Option func(*Handler)

// WithEvents mirrors successful dispatches to a live observer.
func WithEvents(events Events) Option {
	return func(h *Handler) {
		h.events = events
	}
}

func NewHandler(store *mapping.Store, dispatcher Dispatcher, reporter Reporter, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		store:      store,
		dispatcher: dispatcher,
		reporter:   reporter,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleBatch processes one inbound payload start to finish. It never
// propagates a failure: one malformed or unexpected message must not be
// able to terminate the subscribe loop.
func (h *Handler) HandleBatch(data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic while processing command batch", zap.Any("panic", rec))
			h.reporter.Publish(report.CategoryUnhandled, "panic while processing command batch")
		}
	}()

	messages, err := ParseBatch(data, h.store)
	if err != nil {
		h.reject(err)
		return
	}

	for _, msg := range messages {
		if err := msg.Validate(); err != nil {
			h.reject(err)
			return
		}
		if err := msg.Transform(); err != nil {
			h.reject(err)
			return
		}
	}

	for _, msg := range messages {
		sent, err := h.dispatcher.WriteCommand(msg)
		if err != nil {
			// Already published at the write boundary. The batch is
			// abandoned; the service moves on to the next one.
			h.logger.Error("dispatch failed, abandoning batch",
				zap.String("action", msg.Action()), zap.Error(err))
			return
		}
		h.logger.Info("command dispatched",
			zap.String("action", msg.Action()), zap.Int("sent", sent))
		if h.events != nil {
			h.events.CommandDispatched(msg.Action(), sent)
		}
	}
}

// reject publishes a pre-dispatch failure and drops the batch.
func (h *Handler) reject(err error) {
	category := report.CategoryUnhandled
	switch {
	case errors.Is(err, types.ErrInvalidMessage):
		category = report.CategoryInvalidMessage
	case errors.Is(err, types.ErrUnknownCommand):
		category = report.CategoryUnknownCommand
	}

	h.logger.Warn("rejecting command batch", zap.Error(err))
	h.reporter.Publish(category, err.Error())
}
