package command

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/openfieldbus/commandbridge/internal/dispatch"
	"github.com/openfieldbus/commandbridge/internal/report"
)

type fakeDispatcher struct {
	actions []string
	fail    map[string]error
}

func (f *fakeDispatcher) WriteCommand(cmd dispatch.Command) (int, error) {
	f.actions = append(f.actions, cmd.Action())
	if err := f.fail[cmd.Action()]; err != nil {
		return 0, err
	}
	return 1, nil
}

type fakeReporter struct {
	events []report.Category
}

func (f *fakeReporter) Publish(category report.Category, message string) {
	f.events = append(f.events, category)
}

type fakeEvents struct {
	dispatched []string
}

func (f *fakeEvents) CommandDispatched(action string, count int) {
	f.dispatched = append(f.dispatched, action)
}

func newTestHandler(t *testing.T, opts ...Option) (*Handler, *fakeDispatcher, *fakeReporter) {
	t.Helper()
	dispatcher := &fakeDispatcher{fail: map[string]error{}}
	reporter := &fakeReporter{}
	handler := NewHandler(testStore(t), dispatcher, reporter, zap.NewNop(), opts...)
	return handler, dispatcher, reporter
}

func TestHandleBatchDispatchesInOrder(t *testing.T) {
	events := &fakeEvents{}
	handler, dispatcher, reporter := newTestHandler(t, WithEvents(events))

	handler.HandleBatch([]byte(`[{"action":"pump_1","value":true},{"action":"target_rpm","value":1500}]`))

	want := []string{"pump_1", "target_rpm"}
	if len(dispatcher.actions) != 2 || dispatcher.actions[0] != want[0] || dispatcher.actions[1] != want[1] {
		t.Errorf("dispatched %v, want %v", dispatcher.actions, want)
	}
	if len(reporter.events) != 0 {
		t.Errorf("reporter received %v, want none", reporter.events)
	}
	if len(events.dispatched) != 2 {
		t.Errorf("events observed %v, want 2 dispatches", events.dispatched)
	}
}

func TestHandleBatchAbortsBeforeAnyWrite(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		category report.Category
	}{
		{"malformed json", `not json`, report.CategoryInvalidMessage},
		{"unknown second action", `[{"action":"pump_1","value":true},{"action":"bogus","value":1}]`, report.CategoryUnknownCommand},
		{"bad second value", `[{"action":"pump_1","value":true},{"action":"target_rpm","value":"high"}]`, report.CategoryInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, dispatcher, reporter := newTestHandler(t)

			handler.HandleBatch([]byte(tt.payload))

			if len(dispatcher.actions) != 0 {
				t.Errorf("writes issued for a poisoned batch: %v", dispatcher.actions)
			}
			if len(reporter.events) != 1 || reporter.events[0] != tt.category {
				t.Errorf("reporter events = %v, want one %s", reporter.events, tt.category)
			}
		})
	}
}

func TestHandleBatchAbandonsAfterDispatchError(t *testing.T) {
	handler, dispatcher, reporter := newTestHandler(t)
	dispatcher.fail["pump_1"] = errors.New("write timed out")

	handler.HandleBatch([]byte(`[{"action":"pump_1","value":true},{"action":"target_rpm","value":1500}]`))

	if len(dispatcher.actions) != 1 || dispatcher.actions[0] != "pump_1" {
		t.Errorf("dispatched %v, want batch abandoned after pump_1", dispatcher.actions)
	}
	// The dispatcher owns write-boundary failures; the handler must not
	// publish the same failure a second time.
	if len(reporter.events) != 0 {
		t.Errorf("handler re-published a dispatch failure: %v", reporter.events)
	}
}

type panickingDispatcher struct{}

func (panickingDispatcher) WriteCommand(dispatch.Command) (int, error) {
	panic("boom")
}

func TestHandleBatchRecoversFromPanics(t *testing.T) {
	reporter := &fakeReporter{}
	handler := NewHandler(testStore(t), panickingDispatcher{}, reporter, zap.NewNop())

	handler.HandleBatch([]byte(`[{"action":"pump_1","value":true}]`))

	if len(reporter.events) != 1 || reporter.events[0] != report.CategoryUnhandled {
		t.Errorf("reporter events = %v, want one %s", reporter.events, report.CategoryUnhandled)
	}
}
