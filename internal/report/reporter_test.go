package report

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakePublisher struct {
	topic    string
	payloads [][]byte
	err      error
	panics   bool
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	if f.panics {
		panic("sink exploded")
	}
	f.topic = topic
	f.payloads = append(f.payloads, payload)
	return f.err
}

type fakeNotifier struct {
	events []Event
}

func (f *fakeNotifier) NotifyError(event Event) {
	f.events = append(f.events, event)
}

func TestPublishEncodesEvent(t *testing.T) {
	sink := &fakePublisher{}
	r := NewReporter(sink, "site/dev-1/commands/errors", zap.NewNop())

	r.Publish(CategoryInvalidMessage, "payload is not a valid command list")

	if sink.topic != "site/dev-1/commands/errors" {
		t.Errorf("published to %q", sink.topic)
	}
	if len(sink.payloads) != 1 {
		t.Fatalf("published %d payloads, want 1", len(sink.payloads))
	}

	var event Event
	if err := json.Unmarshal(sink.payloads[0], &event); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if event.Category != CategoryInvalidMessage {
		t.Errorf("category = %s", event.Category)
	}
	if event.Message != "payload is not a valid command list" {
		t.Errorf("message = %q", event.Message)
	}
	if event.ID == uuid.Nil {
		t.Error("event has no ID")
	}
	if event.Timestamp.IsZero() {
		t.Error("event has no timestamp")
	}
}

func TestPublishEventIDsAreUnique(t *testing.T) {
	sink := &fakePublisher{}
	r := NewReporter(sink, "errors", zap.NewNop())

	r.Publish(CategoryTransport, "first")
	r.Publish(CategoryTransport, "second")

	var first, second Event
	if err := json.Unmarshal(sink.payloads[0], &first); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if err := json.Unmarshal(sink.payloads[1], &second); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if first.ID == second.ID {
		t.Errorf("events share ID %s", first.ID)
	}
}

func TestInactiveReporterDropsEvents(t *testing.T) {
	t.Run("empty topic", func(t *testing.T) {
		sink := &fakePublisher{}
		r := NewReporter(sink, "", zap.NewNop())
		r.Publish(CategoryTransport, "down")
		if len(sink.payloads) != 0 {
			t.Errorf("published %d payloads, want none", len(sink.payloads))
		}
	})

	t.Run("nil publisher", func(t *testing.T) {
		r := NewReporter(nil, "errors", zap.NewNop())
		r.Publish(CategoryTransport, "down")
	})
}

func TestInactiveReporterStillNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	r := NewReporter(nil, "", zap.NewNop(), WithNotifier(notifier))

	r.Publish(CategoryUnknownCommand, "no match")

	if len(notifier.events) != 1 || notifier.events[0].Category != CategoryUnknownCommand {
		t.Errorf("notifier saw %v", notifier.events)
	}
}

func TestPublishNeverPropagatesSinkFailures(t *testing.T) {
	t.Run("sink error", func(t *testing.T) {
		sink := &fakePublisher{err: errors.New("not connected")}
		r := NewReporter(sink, "errors", zap.NewNop())
		r.Publish(CategoryTransport, "down")
	})

	t.Run("sink panic", func(t *testing.T) {
		sink := &fakePublisher{panics: true}
		r := NewReporter(sink, "errors", zap.NewNop())
		r.Publish(CategoryTransport, "down")
	})
}
