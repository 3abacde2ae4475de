// Package command parses, validates and type-coerces inbound command
// batches before they are handed to the dispatcher.
package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/openfieldbus/commandbridge/internal/mapping"
	"github.com/openfieldbus/commandbridge/internal/payload"
	"github.com/openfieldbus/commandbridge/internal/types"
)

type rawCommand struct {
	Action string `json:"action"`
	Value  any    `json:"value"`
}

// Message is one parsed inbound command. It is validated against the device
// map, transformed to the resolved target's value type and then consumed
// exactly once by the dispatcher.
type Message struct {
	action string
	value  any
	store  *mapping.Store

	coil     *mapping.Coil
	register *mapping.HoldingRegister

	coilValues []bool
	regValue   *payload.Value
}

// NewMessage wraps one raw command for validation. value holds the decoded
// JSON value: bool, json.Number or a list of bools.
func NewMessage(action string, value any, store *mapping.Store) *Message {
	return &Message{action: action, value: value, store: store}
}

// ParseBatch decodes an inbound payload into its ordered command list. A
// payload that is not a well-formed command list poisons the whole batch.
func ParseBatch(data []byte, store *mapping.Store) ([]*Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []rawCommand
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: payload is not a valid command list: %v",
			types.ErrInvalidMessage, err)
	}

	messages := make([]*Message, 0, len(raw))
	for i, rc := range raw {
		if rc.Action == "" || rc.Value == nil {
			return nil, fmt.Errorf("%w: command #%d is missing required components 'action' and/or 'value'",
				types.ErrInvalidMessage, i)
		}
		messages = append(messages, NewMessage(rc.Action, rc.Value, store))
	}

	return messages, nil
}

func (m *Message) Action() string {
	return m.action
}

// Validate resolves the action name against the device map.
func (m *Message) Validate() error {
	coil, coilOK := m.store.Coil(m.action)
	register, registerOK := m.store.HoldingRegister(m.action)

	if !coilOK && !registerOK {
		return fmt.Errorf("%w: no coil or register found to match %q",
			types.ErrUnknownCommand, m.action)
	}

	m.coil = coil
	m.register = register
	return nil
}

// Transform coerces the raw value to the resolved target's type. It
// requires a prior successful Validate.
func (m *Message) Transform() error {
	if m.coil == nil && m.register == nil {
		return fmt.Errorf("%w: command %q has not been validated",
			types.ErrInvalidMessage, m.action)
	}

	if m.coil != nil {
		values, err := coerceBools(m.value)
		if err != nil {
			return fmt.Errorf("%w: coil %q: %v", types.ErrInvalidMessage, m.action, err)
		}
		m.coilValues = values
	}

	if m.register != nil {
		value, err := coerceNumber(m.register, m.value)
		if err != nil {
			return fmt.Errorf("%w: register %q: %v", types.ErrInvalidMessage, m.action, err)
		}
		m.regValue = &value
	}

	return nil
}

// CoilValues returns the coerced discrete values when the command resolved
// to a coil target.
func (m *Message) CoilValues() ([]bool, bool) {
	return m.coilValues, m.coilValues != nil
}

// RegisterValue returns the coerced register value when the command
// resolved to a holding register target.
func (m *Message) RegisterValue() (payload.Value, bool) {
	if m.regValue == nil {
		return payload.Value{}, false
	}
	return *m.regValue, true
}

// coerceBools accepts a bool, a non-zero/zero number, or a list of bools
// for multi-coil writes. Anything else is rejected rather than guessed at.
func coerceBools(value any) ([]bool, error) {
	switch v := value.(type) {
	case bool:
		return []bool{v}, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("value %q is not a number", v.String())
		}
		return []bool{f != 0}, nil
	case []any:
		values := make([]bool, 0, len(v))
		for _, item := range v {
			b, ok := item.(bool)
			if !ok {
				return nil, fmt.Errorf("value list may only contain booleans, got %v", item)
			}
			values = append(values, b)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("value list is empty")
		}
		return values, nil
	}
	return nil, fmt.Errorf("value %v is not coercible to a coil state", value)
}

func coerceNumber(reg *mapping.HoldingRegister, value any) (payload.Value, error) {
	num, ok := value.(json.Number)
	if !ok {
		return payload.Value{}, fmt.Errorf("value %v is not numeric", value)
	}

	if reg.Scale != 1.0 {
		return coerceScaled(reg, num)
	}

	switch reg.DataType {
	case mapping.DataTypeInt16, mapping.DataTypeInt32, mapping.DataTypeInt64:
		i, err := strconv.ParseInt(num.String(), 10, 64)
		if err != nil {
			return payload.Value{}, fmt.Errorf("value %s is not a valid %s", num, reg.DataType)
		}
		return payload.Int(reg.DataType, i)

	case mapping.DataTypeUint16, mapping.DataTypeUint32, mapping.DataTypeUint64:
		u, err := strconv.ParseUint(num.String(), 10, 64)
		if err != nil {
			return payload.Value{}, fmt.Errorf("value %s is not a valid %s", num, reg.DataType)
		}
		return payload.Uint(reg.DataType, u)

	case mapping.DataTypeFloat32, mapping.DataTypeFloat64:
		f, err := num.Float64()
		if err != nil {
			return payload.Value{}, fmt.Errorf("value %s is not a valid %s", num, reg.DataType)
		}
		return payload.Float(reg.DataType, f)
	}

	return payload.Value{}, fmt.Errorf("unknown data type %q", reg.DataType)
}

// coerceScaled divides the value by the register's scale before coercion.
// Integer targets round to the nearest register unit.
func coerceScaled(reg *mapping.HoldingRegister, num json.Number) (payload.Value, error) {
	f, err := num.Float64()
	if err != nil {
		return payload.Value{}, fmt.Errorf("value %s is not numeric", num)
	}
	scaled := f / reg.Scale

	switch reg.DataType {
	case mapping.DataTypeFloat32, mapping.DataTypeFloat64:
		return payload.Float(reg.DataType, scaled)

	case mapping.DataTypeInt16, mapping.DataTypeInt32, mapping.DataTypeInt64:
		rounded := math.Round(scaled)
		if rounded < math.MinInt64 || rounded >= math.MaxInt64 {
			return payload.Value{}, fmt.Errorf("scaled value %g out of range for %s", scaled, reg.DataType)
		}
		return payload.Int(reg.DataType, int64(rounded))

	case mapping.DataTypeUint16, mapping.DataTypeUint32, mapping.DataTypeUint64:
		rounded := math.Round(scaled)
		if rounded < 0 || rounded >= math.MaxUint64 {
			return payload.Value{}, fmt.Errorf("scaled value %g out of range for %s", scaled, reg.DataType)
		}
		return payload.Uint(reg.DataType, uint64(rounded))
	}

	return payload.Value{}, fmt.Errorf("unknown data type %q", reg.DataType)
}
