// Package dispatch resolves validated commands against the device map and
// issues the matching fieldbus writes. Routing is name-driven: a command
// carries only a name and a value, and the dispatcher discovers the target
// kind by lookup.
package dispatch

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/openfieldbus/commandbridge/internal/mapping"
	"github.com/openfieldbus/commandbridge/internal/payload"
	"github.com/openfieldbus/commandbridge/internal/report"
	"github.com/openfieldbus/commandbridge/internal/types"
)

// Writer issues raw fieldbus write operations. Implementations own the
// connection lifecycle of each call.
type Writer interface {
	WriteCoil(address uint16, value bool) error
	WriteCoils(address uint16, values []bool) error
	WriteRegisters(address uint16, words []uint16) error
}

// Reporter is the categorized failure sink.
type Reporter interface {
	Publish(category report.Category, message string)
}

// Command is one validated and transformed unit of work. At most one of the
// two value kinds is populated, matching the resolved target.
type Command interface {
	Action() string
	CoilValues() ([]bool, bool)
	RegisterValue() (payload.Value, bool)
}

// Status tells a caller how a single write attempt ended. Absence of a
// target is a normal "try the other kind" signal, not a failure.
type Status int

const (
	StatusSent Status = iota
	StatusNotFound
	StatusFailed
)

// Result is the outcome of one write attempt.
type Result struct {
	Status Status
	Count  int
}

// Stats is a snapshot of dispatch counters since startup.
type Stats struct {
	CoilWrites      uint64 `json:"coil_writes"`
	RegisterWrites  uint64 `json:"register_writes"`
	FailedWrites    uint64 `json:"failed_writes"`
	UnknownCommands uint64 `json:"unknown_commands"`
}

// Dispatcher issues coil and register writes for logical command names.
type Dispatcher struct {
	store    *mapping.Store
	writer   Writer
	reporter Reporter
	logger   *zap.Logger

	coilWrites      atomic.Uint64
	registerWrites  atomic.Uint64
	failedWrites    atomic.Uint64
	unknownCommands atomic.Uint64
}

func NewDispatcher(store *mapping.Store, writer Writer, reporter Reporter, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		writer:   writer,
		reporter: reporter,
		logger:   logger,
	}
}

// WriteCoil writes one discrete output. Returns NotFound when no coil is
// configured under the name.
func (d *Dispatcher) WriteCoil(name string, value bool) (Result, error) {
	coil, ok := d.store.Coil(name)
	if !ok {
		return Result{Status: StatusNotFound}, nil
	}

	if err := d.writer.WriteCoil(coil.Address, value); err != nil {
		return d.failed(name, err)
	}

	d.coilWrites.Add(1)
	d.logger.Debug("wrote coil",
		zap.String("name", name),
		zap.Uint16("address", coil.Address),
		zap.Bool("value", value))
	return Result{Status: StatusSent, Count: 1}, nil
}

// WriteCoils writes a contiguous run of discrete outputs starting at the
// target's base address. The count reflects the number of coils written.
func (d *Dispatcher) WriteCoils(name string, values []bool) (Result, error) {
	coil, ok := d.store.Coil(name)
	if !ok {
		return Result{Status: StatusNotFound}, nil
	}

	if err := d.writer.WriteCoils(coil.Address, values); err != nil {
		return d.failed(name, err)
	}

	d.coilWrites.Add(uint64(len(values)))
	d.logger.Debug("wrote coils",
		zap.String("name", name),
		zap.Uint16("address", coil.Address),
		zap.Int("count", len(values)))
	return Result{Status: StatusSent, Count: len(values)}, nil
}

// WriteRegister encodes the value per the target's data type and memory
// order and issues one multi-register write covering exactly those words.
func (d *Dispatcher) WriteRegister(name string, value payload.Value) (Result, error) {
	reg, ok := d.store.HoldingRegister(name)
	if !ok {
		return Result{Status: StatusNotFound}, nil
	}

	if value.Type != reg.DataType {
		err := fmt.Errorf("%w: value typed %s for %s register %q",
			types.ErrInvalidMessage, value.Type, reg.DataType, name)
		d.reporter.Publish(report.CategoryInvalidMessage, err.Error())
		d.failedWrites.Add(1)
		return Result{Status: StatusFailed}, err
	}

	words, err := payload.Encode(value, reg.Order)
	if err != nil {
		err = fmt.Errorf("%w: %s", types.ErrInvalidMessage, err)
		d.reporter.Publish(report.CategoryInvalidMessage, err.Error())
		d.failedWrites.Add(1)
		return Result{Status: StatusFailed}, err
	}

	if err := d.writer.WriteRegisters(reg.Address, words); err != nil {
		return d.failed(name, err)
	}

	d.registerWrites.Add(1)
	d.logger.Debug("wrote holding register",
		zap.String("name", name),
		zap.Uint16("address", reg.Address),
		zap.Int("words", len(words)))
	return Result{Status: StatusSent, Count: 1}, nil
}

// WriteCommand attempts the coil and register writes a command resolves to
// and sums the sent counts. A command matching neither kind is an unknown
// command; a transport failure is terminal for the command.
func (d *Dispatcher) WriteCommand(cmd Command) (int, error) {
	sent := 0

	if values, ok := cmd.CoilValues(); ok {
		var (
			res Result
			err error
		)
		if len(values) == 1 {
			res, err = d.WriteCoil(cmd.Action(), values[0])
		} else {
			res, err = d.WriteCoils(cmd.Action(), values)
		}
		if err != nil {
			return sent, err
		}
		sent += res.Count
	}

	if value, ok := cmd.RegisterValue(); ok {
		res, err := d.WriteRegister(cmd.Action(), value)
		if err != nil {
			return sent, err
		}
		sent += res.Count
	}

	if sent == 0 {
		err := fmt.Errorf("%w: no coil or register found to match %q",
			types.ErrUnknownCommand, cmd.Action())
		d.reporter.Publish(report.CategoryUnknownCommand, err.Error())
		d.unknownCommands.Add(1)
		return 0, err
	}

	return sent, nil
}

// Snapshot returns the dispatch counters.
func (d *Dispatcher) Snapshot() Stats {
	return Stats{
		CoilWrites:      d.coilWrites.Load(),
		RegisterWrites:  d.registerWrites.Load(),
		FailedWrites:    d.failedWrites.Load(),
		UnknownCommands: d.unknownCommands.Load(),
	}
}

func (d *Dispatcher) failed(name string, err error) (Result, error) {
	wrapped := fmt.Errorf("%w: write %q: %v", types.ErrTransport, name, err)
	d.reporter.Publish(report.CategoryTransport, wrapped.Error())
	d.failedWrites.Add(1)
	return Result{Status: StatusFailed}, wrapped
}
