// Package modbus owns the fieldbus transport: raw coil and register writes
// against the single configured Modbus TCP endpoint.
package modbus

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"go.uber.org/zap"
)

// Config addresses the fieldbus endpoint.
type Config struct {
	Host    string
	Port    int
	UnitID  uint8
	Timeout time.Duration
}

// Writer issues Modbus TCP writes. Every call opens the connection, performs
// exactly one transaction and closes again: command traffic is low-frequency
// control traffic, so the simplicity of a fresh connection wins over the
// per-write latency. A mutex serializes calls because the underlying handler
// is not safe for concurrent transactions.
type Writer struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
	logger  *zap.Logger
}

func NewWriter(cfg Config, logger *zap.Logger) *Writer {
	handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	handler.Timeout = cfg.Timeout
	handler.SlaveId = cfg.UnitID

	return &Writer{
		handler: handler,
		client:  modbus.NewClient(handler),
		logger:  logger,
	}
}

// WriteCoil issues one single-coil write (function code 0x05).
func (w *Writer) WriteCoil(address uint16, value bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.connect(); err != nil {
		return err
	}
	defer w.handler.Close()

	var wire uint16
	if value {
		wire = 0xFF00
	}
	if _, err := w.client.WriteSingleCoil(address, wire); err != nil {
		return fmt.Errorf("write coil at %d: %w", address, err)
	}

	w.logger.Debug("coil write completed",
		zap.Uint16("address", address), zap.Bool("value", value))
	return nil
}

// WriteCoils issues one multi-coil write (function code 0x0F) for a
// contiguous run starting at address.
func (w *Writer) WriteCoils(address uint16, values []bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.connect(); err != nil {
		return err
	}
	defer w.handler.Close()

	// Coil states are packed LSB-first, one bit per coil.
	packed := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			packed[i/8] |= 1 << (i % 8)
		}
	}

	if _, err := w.client.WriteMultipleCoils(address, uint16(len(values)), packed); err != nil {
		return fmt.Errorf("write %d coils at %d: %w", len(values), address, err)
	}

	w.logger.Debug("multi-coil write completed",
		zap.Uint16("address", address), zap.Int("count", len(values)))
	return nil
}

// WriteRegisters issues one multi-register write (function code 0x10)
// covering exactly the given words.
func (w *Writer) WriteRegisters(address uint16, words []uint16) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.connect(); err != nil {
		return err
	}
	defer w.handler.Close()

	wire := make([]byte, 2*len(words))
	for i, word := range words {
		binary.BigEndian.PutUint16(wire[2*i:], word)
	}

	if _, err := w.client.WriteMultipleRegisters(address, uint16(len(words)), wire); err != nil {
		return fmt.Errorf("write %d registers at %d: %w", len(words), address, err)
	}

	w.logger.Debug("register write completed",
		zap.Uint16("address", address), zap.Int("words", len(words)))
	return nil
}

func (w *Writer) connect() error {
	if err := w.handler.Connect(); err != nil {
		return fmt.Errorf("connect to %s: %w", w.handler.Address, err)
	}
	return nil
}
