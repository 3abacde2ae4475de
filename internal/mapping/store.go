package mapping

import "fmt"

// Store is the immutable lookup table from logical command names to write
// targets. It is built once at startup and safe for unsynchronized
// concurrent reads.
type Store struct {
	coils     map[string]*Coil
	registers map[string]*HoldingRegister
}

// NewStore indexes the device map by name. A name may resolve to at most one
// target: duplicates within a kind and names configured as both a coil and a
// holding register are rejected, so name-driven dispatch can never fire twice
// for one command.
func NewStore(coils []Coil, registers []HoldingRegister) (*Store, error) {
	s := &Store{
		coils:     make(map[string]*Coil, len(coils)),
		registers: make(map[string]*HoldingRegister, len(registers)),
	}

	for i := range coils {
		c := &coils[i]
		if _, ok := s.coils[c.Name]; ok {
			return nil, fmt.Errorf("duplicate coil %q", c.Name)
		}
		s.coils[c.Name] = c
	}

	for i := range registers {
		r := &registers[i]
		if _, ok := s.registers[r.Name]; ok {
			return nil, fmt.Errorf("duplicate holding register %q", r.Name)
		}
		if _, ok := s.coils[r.Name]; ok {
			return nil, fmt.Errorf("%q configured as both coil and holding register", r.Name)
		}
		s.registers[r.Name] = r
	}

	if len(s.coils)+len(s.registers) == 0 {
		return nil, fmt.Errorf("device map defines no coils or holding registers")
	}

	return s, nil
}

// Coil looks up a coil target by name.
func (s *Store) Coil(name string) (*Coil, bool) {
	c, ok := s.coils[name]
	return c, ok
}

// HoldingRegister looks up a holding register target by name.
func (s *Store) HoldingRegister(name string) (*HoldingRegister, bool) {
	r, ok := s.registers[name]
	return r, ok
}

// Coils returns all configured coil targets.
func (s *Store) Coils() []Coil {
	out := make([]Coil, 0, len(s.coils))
	for _, c := range s.coils {
		out = append(out, *c)
	}
	return out
}

// HoldingRegisters returns all configured holding register targets.
func (s *Store) HoldingRegisters() []HoldingRegister {
	out := make([]HoldingRegister, 0, len(s.registers))
	for _, r := range s.registers {
		out = append(out, *r)
	}
	return out
}
