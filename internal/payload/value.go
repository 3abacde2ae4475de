package payload

import (
	"fmt"
	"math"

	"github.com/openfieldbus/commandbridge/internal/mapping"
)

// Value is a register write value tagged by the data type it was coerced to.
// Exactly one of the numeric fields is meaningful, selected by Type.
type Value struct {
	Type  mapping.DataType
	Int   int64
	Uint  uint64
	Float float64
}

// Int builds a signed integer value, range-checked against the data type.
func Int(t mapping.DataType, v int64) (Value, error) {
	var min, max int64
	switch t {
	case mapping.DataTypeInt16:
		min, max = math.MinInt16, math.MaxInt16
	case mapping.DataTypeInt32:
		min, max = math.MinInt32, math.MaxInt32
	case mapping.DataTypeInt64:
		min, max = math.MinInt64, math.MaxInt64
	default:
		return Value{}, fmt.Errorf("data type %s does not hold signed integers", t)
	}
	if v < min || v > max {
		return Value{}, fmt.Errorf("value %d out of range for %s", v, t)
	}
	return Value{Type: t, Int: v}, nil
}

// Uint builds an unsigned integer value, range-checked against the data type.
func Uint(t mapping.DataType, v uint64) (Value, error) {
	var max uint64
	switch t {
	case mapping.DataTypeUint16:
		max = math.MaxUint16
	case mapping.DataTypeUint32:
		max = math.MaxUint32
	case mapping.DataTypeUint64:
		max = math.MaxUint64
	default:
		return Value{}, fmt.Errorf("data type %s does not hold unsigned integers", t)
	}
	if v > max {
		return Value{}, fmt.Errorf("value %d out of range for %s", v, t)
	}
	return Value{Type: t, Uint: v}, nil
}

// Float builds a floating point value, range-checked against the data type.
func Float(t mapping.DataType, v float64) (Value, error) {
	switch t {
	case mapping.DataTypeFloat32:
		if !math.IsInf(v, 0) && math.Abs(v) > math.MaxFloat32 {
			return Value{}, fmt.Errorf("value %g out of range for %s", v, t)
		}
	case mapping.DataTypeFloat64:
	default:
		return Value{}, fmt.Errorf("data type %s does not hold floats", t)
	}
	return Value{Type: t, Float: v}, nil
}
