// Package payload encodes typed command values into the ordered 16-bit word
// sequences a multi-register write expects. Encoding is pure: identical
// inputs always produce identical words.
package payload

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/openfieldbus/commandbridge/internal/mapping"
)

// Encode produces the register words for a value. The natural big-endian
// representation is split into words most-significant first, then bytes
// within each word and the word sequence itself are swapped as the memory
// order demands. Values are range-checked again here so a codec caller can
// never push an overflowing representation onto the wire.
func Encode(v Value, order mapping.MemoryOrder) ([]uint16, error) {
	buf, err := nativeBytes(v)
	if err != nil {
		return nil, err
	}

	words := make([]uint16, len(buf)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(buf[2*i:])
	}

	if order.ByteSwap {
		for i, w := range words {
			words[i] = bits.ReverseBytes16(w)
		}
	}

	if order.WordSwap {
		for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
			words[i], words[j] = words[j], words[i]
		}
	}

	return words, nil
}

func nativeBytes(v Value) ([]byte, error) {
	switch v.Type {
	case mapping.DataTypeInt16:
		if v.Int < math.MinInt16 || v.Int > math.MaxInt16 {
			return nil, overflow(v)
		}
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(int16(v.Int)))
		return buf, nil

	case mapping.DataTypeUint16:
		if v.Uint > math.MaxUint16 {
			return nil, overflow(v)
		}
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(v.Uint))
		return buf, nil

	case mapping.DataTypeInt32:
		if v.Int < math.MinInt32 || v.Int > math.MaxInt32 {
			return nil, overflow(v)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(int32(v.Int)))
		return buf, nil

	case mapping.DataTypeUint32:
		if v.Uint > math.MaxUint32 {
			return nil, overflow(v)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(v.Uint))
		return buf, nil

	case mapping.DataTypeInt64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v.Int))
		return buf, nil

	case mapping.DataTypeUint64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, v.Uint)
		return buf, nil

	case mapping.DataTypeFloat32:
		if !math.IsInf(v.Float, 0) && math.Abs(v.Float) > math.MaxFloat32 {
			return nil, overflow(v)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v.Float)))
		return buf, nil

	case mapping.DataTypeFloat64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(v.Float))
		return buf, nil
	}

	return nil, fmt.Errorf("cannot encode unknown data type %q", v.Type)
}

func overflow(v Value) error {
	return fmt.Errorf("value overflows %s", v.Type)
}
