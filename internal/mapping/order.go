package mapping

import "fmt"

// MemoryOrder describes how a multi-byte value is laid out across registers:
// the byte order within each 16-bit word and the word order across words.
// The zero value is big-endian bytes in natural word order ("AB").
type MemoryOrder struct {
	// ByteSwap swaps the two bytes within each word (little-endian bytes).
	ByteSwap bool
	// WordSwap reverses the word sequence of multi-word values.
	WordSwap bool
}

// ParseMemoryOrder maps the device-family order codes onto byte and word
// swapping. An empty string defaults to "AB".
//
//	AB   - big-endian bytes, natural word order
//	BA   - little-endian bytes, swapped word order
//	CDAB - big-endian bytes, swapped word order
//	BADC - little-endian bytes, natural word order
func ParseMemoryOrder(s string) (MemoryOrder, error) {
	switch s {
	case "", "AB":
		return MemoryOrder{}, nil
	case "BA":
		return MemoryOrder{ByteSwap: true, WordSwap: true}, nil
	case "CDAB":
		return MemoryOrder{WordSwap: true}, nil
	case "BADC":
		return MemoryOrder{ByteSwap: true}, nil
	}
	return MemoryOrder{}, fmt.Errorf("unknown memory order %q", s)
}

func (o MemoryOrder) String() string {
	switch {
	case o.ByteSwap && o.WordSwap:
		return "BA"
	case o.WordSwap:
		return "CDAB"
	case o.ByteSwap:
		return "BADC"
	}
	return "AB"
}
