package dispatch

import (
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/openfieldbus/commandbridge/internal/mapping"
	"github.com/openfieldbus/commandbridge/internal/payload"
	"github.com/openfieldbus/commandbridge/internal/report"
	"github.com/openfieldbus/commandbridge/internal/types"
)

type coilWrite struct {
	address uint16
	values  []bool
}

type registerWrite struct {
	address uint16
	words   []uint16
}

type fakeWriter struct {
	coils     []coilWrite
	registers []registerWrite
	err       error
}

func (f *fakeWriter) WriteCoil(address uint16, value bool) error {
	if f.err != nil {
		return f.err
	}
	f.coils = append(f.coils, coilWrite{address, []bool{value}})
	return nil
}

func (f *fakeWriter) WriteCoils(address uint16, values []bool) error {
	if f.err != nil {
		return f.err
	}
	f.coils = append(f.coils, coilWrite{address, values})
	return nil
}

func (f *fakeWriter) WriteRegisters(address uint16, words []uint16) error {
	if f.err != nil {
		return f.err
	}
	f.registers = append(f.registers, registerWrite{address, words})
	return nil
}

type fakeReporter struct {
	events []report.Category
}

func (f *fakeReporter) Publish(category report.Category, message string) {
	f.events = append(f.events, category)
}

// testCommand satisfies Command directly so dispatcher tests need no parser.
type testCommand struct {
	action string
	coils  []bool
	value  *payload.Value
}

func (c testCommand) Action() string { return c.action }

func (c testCommand) CoilValues() ([]bool, bool) { return c.coils, c.coils != nil }

func (c testCommand) RegisterValue() (payload.Value, bool) {
	if c.value == nil {
		return payload.Value{}, false
	}
	return *c.value, true
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeWriter, *fakeReporter) {
	t.Helper()
	store, err := mapping.NewStore(
		[]mapping.Coil{{Name: "pump_1", Address: 10}},
		[]mapping.HoldingRegister{
			{Name: "setpoint_temp", Address: 100, DataType: mapping.DataTypeFloat32, Scale: 1},
			{Name: "flow_total", Address: 110, DataType: mapping.DataTypeUint32, Order: mapping.MemoryOrder{WordSwap: true}, Scale: 1},
		},
	)
	if err != nil {
		t.Fatalf("building store: %v", err)
	}
	writer := &fakeWriter{}
	reporter := &fakeReporter{}
	return NewDispatcher(store, writer, reporter, zap.NewNop()), writer, reporter
}

func TestWriteCoil(t *testing.T) {
	d, writer, reporter := newTestDispatcher(t)

	res, err := d.WriteCoil("pump_1", true)
	if err != nil {
		t.Fatalf("WriteCoil failed: %v", err)
	}
	if res.Status != StatusSent || res.Count != 1 {
		t.Errorf("result = %+v, want sent 1", res)
	}
	if len(writer.coils) != 1 || writer.coils[0].address != 10 || !writer.coils[0].values[0] {
		t.Errorf("writer saw %+v", writer.coils)
	}
	if len(reporter.events) != 0 {
		t.Errorf("reporter saw %v, want none", reporter.events)
	}
}

func TestWriteCoilNotFound(t *testing.T) {
	d, writer, _ := newTestDispatcher(t)

	res, err := d.WriteCoil("setpoint_temp", true)
	if err != nil {
		t.Fatalf("WriteCoil failed: %v", err)
	}
	if res.Status != StatusNotFound {
		t.Errorf("result = %+v, want not found", res)
	}
	if len(writer.coils) != 0 {
		t.Errorf("writer saw %+v, want nothing", writer.coils)
	}
}

func TestWriteCoilsCountsEachCoil(t *testing.T) {
	d, writer, _ := newTestDispatcher(t)

	res, err := d.WriteCoils("pump_1", []bool{true, false, true})
	if err != nil {
		t.Fatalf("WriteCoils failed: %v", err)
	}
	if res.Status != StatusSent || res.Count != 3 {
		t.Errorf("result = %+v, want sent 3", res)
	}
	if len(writer.coils) != 1 || len(writer.coils[0].values) != 3 {
		t.Errorf("writer saw %+v", writer.coils)
	}
}

func TestWriteRegisterEncodesPerOrder(t *testing.T) {
	d, writer, _ := newTestDispatcher(t)

	res, err := d.WriteRegister("flow_total", payload.Value{Type: mapping.DataTypeUint32, Uint: 0x11223344})
	if err != nil {
		t.Fatalf("WriteRegister failed: %v", err)
	}
	if res.Status != StatusSent || res.Count != 1 {
		t.Errorf("result = %+v, want sent 1", res)
	}
	want := registerWrite{address: 110, words: []uint16{0x3344, 0x1122}}
	if len(writer.registers) != 1 || !reflect.DeepEqual(writer.registers[0], want) {
		t.Errorf("writer saw %+v, want %+v", writer.registers, want)
	}
}

func TestWriteRegisterTypeMismatch(t *testing.T) {
	d, writer, reporter := newTestDispatcher(t)

	_, err := d.WriteRegister("setpoint_temp", payload.Value{Type: mapping.DataTypeInt16, Int: 1})
	if err == nil {
		t.Fatal("WriteRegister succeeded, want type mismatch error")
	}
	if !errors.Is(err, types.ErrInvalidMessage) {
		t.Errorf("error %v is not ErrInvalidMessage", err)
	}
	if len(writer.registers) != 0 {
		t.Errorf("writer saw %+v, want nothing", writer.registers)
	}
	if len(reporter.events) != 1 || reporter.events[0] != report.CategoryInvalidMessage {
		t.Errorf("reporter events = %v", reporter.events)
	}
}

func TestTransportFailurePublishesOnce(t *testing.T) {
	d, writer, reporter := newTestDispatcher(t)
	writer.err = errors.New("connection refused")

	_, err := d.WriteCoil("pump_1", true)
	if err == nil {
		t.Fatal("WriteCoil succeeded, want transport error")
	}
	if !errors.Is(err, types.ErrTransport) {
		t.Errorf("error %v is not ErrTransport", err)
	}
	if len(reporter.events) != 1 || reporter.events[0] != report.CategoryTransport {
		t.Errorf("reporter events = %v, want one transport event", reporter.events)
	}
}

func TestWriteCommand(t *testing.T) {
	t.Run("coil command", func(t *testing.T) {
		d, _, _ := newTestDispatcher(t)
		sent, err := d.WriteCommand(testCommand{action: "pump_1", coils: []bool{true}})
		if err != nil || sent != 1 {
			t.Errorf("WriteCommand = %d, %v, want 1, nil", sent, err)
		}
	})

	t.Run("register command", func(t *testing.T) {
		d, _, _ := newTestDispatcher(t)
		value := payload.Value{Type: mapping.DataTypeFloat32, Float: 21.5}
		sent, err := d.WriteCommand(testCommand{action: "setpoint_temp", value: &value})
		if err != nil || sent != 1 {
			t.Errorf("WriteCommand = %d, %v, want 1, nil", sent, err)
		}
	})

	t.Run("unknown command publishes exactly one event", func(t *testing.T) {
		d, _, reporter := newTestDispatcher(t)
		sent, err := d.WriteCommand(testCommand{action: "bogus", coils: []bool{true}})
		if err == nil {
			t.Fatal("WriteCommand succeeded for unknown name")
		}
		if !errors.Is(err, types.ErrUnknownCommand) {
			t.Errorf("error %v is not ErrUnknownCommand", err)
		}
		if sent != 0 {
			t.Errorf("sent = %d, want 0", sent)
		}
		if len(reporter.events) != 1 || reporter.events[0] != report.CategoryUnknownCommand {
			t.Errorf("reporter events = %v, want one unknown command event", reporter.events)
		}
	})

	t.Run("transport failure stops the command", func(t *testing.T) {
		d, writer, reporter := newTestDispatcher(t)
		writer.err = errors.New("broken pipe")
		value := payload.Value{Type: mapping.DataTypeFloat32, Float: 1}
		sent, err := d.WriteCommand(testCommand{action: "setpoint_temp", value: &value})
		if err == nil || sent != 0 {
			t.Errorf("WriteCommand = %d, %v, want 0 and an error", sent, err)
		}
		if len(reporter.events) != 1 || reporter.events[0] != report.CategoryTransport {
			t.Errorf("reporter events = %v", reporter.events)
		}
	})
}

func TestSnapshot(t *testing.T) {
	d, writer, _ := newTestDispatcher(t)

	if _, err := d.WriteCoil("pump_1", true); err != nil {
		t.Fatalf("WriteCoil failed: %v", err)
	}
	if _, err := d.WriteCoils("pump_1", []bool{true, false}); err != nil {
		t.Fatalf("WriteCoils failed: %v", err)
	}
	value := payload.Value{Type: mapping.DataTypeFloat32, Float: 1}
	if _, err := d.WriteRegister("setpoint_temp", value); err != nil {
		t.Fatalf("WriteRegister failed: %v", err)
	}
	if _, err := d.WriteCommand(testCommand{action: "bogus", coils: []bool{true}}); err == nil {
		t.Fatal("unknown command succeeded")
	}

	writer.err = errors.New("down")
	if _, err := d.WriteCoil("pump_1", true); err == nil {
		t.Fatal("transport failure succeeded")
	}

	want := Stats{CoilWrites: 3, RegisterWrites: 1, FailedWrites: 1, UnknownCommands: 1}
	if got := d.Snapshot(); got != want {
		t.Errorf("Snapshot = %+v, want %+v", got, want)
	}
}
