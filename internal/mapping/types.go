package mapping

import "fmt"

// DataType is the logical width and representation assigned to a holding
// register in the device map. It governs how many registers a value spans
// and how the value is encoded.
type DataType string

const (
	DataTypeInt16   DataType = "int16"
	DataTypeUint16  DataType = "uint16"
	DataTypeInt32   DataType = "int32"
	DataTypeUint32  DataType = "uint32"
	DataTypeInt64   DataType = "int64"
	DataTypeUint64  DataType = "uint64"
	DataTypeFloat32 DataType = "float32"
	DataTypeFloat64 DataType = "float64"
)

// Words returns the number of 16-bit registers a value of this type spans.
func (d DataType) Words() int {
	switch d {
	case DataTypeInt16, DataTypeUint16:
		return 1
	case DataTypeInt32, DataTypeUint32, DataTypeFloat32:
		return 2
	case DataTypeInt64, DataTypeUint64, DataTypeFloat64:
		return 4
	default:
		return 0
	}
}

// ParseDataType validates a data type string from the device map.
func ParseDataType(s string) (DataType, error) {
	d := DataType(s)
	if d.Words() == 0 {
		return "", fmt.Errorf("unknown data type %q", s)
	}
	return d, nil
}

// Coil is a single-bit discrete output, addressed by its base address.
type Coil struct {
	Name    string
	Address uint16
}

// HoldingRegister is a named multi-register write target. Multi-byte values
// span consecutive registers starting at Address, laid out per Order.
// Scale divides the incoming value before encoding; 1.0 passes it through.
type HoldingRegister struct {
	Name     string
	Address  uint16
	DataType DataType
	Order    MemoryOrder
	Scale    float64
}
