package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type coilEntry struct {
	Name    string `yaml:"name"`
	Address uint16 `yaml:"address"`
}

type registerEntry struct {
	Name      string   `yaml:"name"`
	Address   uint16   `yaml:"address"`
	DataType  string   `yaml:"data_type"`
	ByteOrder string   `yaml:"byte_order"`
	Scale     *float64 `yaml:"scale"`
}

type deviceMapFile struct {
	Coils            []coilEntry     `yaml:"coils"`
	HoldingRegisters []registerEntry `yaml:"holding_registers"`
}

// Load reads the device map YAML, validates it against the embedded schema
// and builds the immutable Store. Any problem in the map is a startup
// failure; the service must not run against a partial or ambiguous map.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device map: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse device map %s: %w", path, err)
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(doc); err != nil {
		return nil, fmt.Errorf("device map %s: %w", path, err)
	}

	var file deviceMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse device map %s: %w", path, err)
	}

	coils := make([]Coil, 0, len(file.Coils))
	for _, e := range file.Coils {
		coils = append(coils, Coil{Name: e.Name, Address: e.Address})
	}

	registers := make([]HoldingRegister, 0, len(file.HoldingRegisters))
	for _, e := range file.HoldingRegisters {
		dataType, err := ParseDataType(e.DataType)
		if err != nil {
			return nil, fmt.Errorf("holding register %q: %w", e.Name, err)
		}
		order, err := ParseMemoryOrder(e.ByteOrder)
		if err != nil {
			return nil, fmt.Errorf("holding register %q: %w", e.Name, err)
		}
		scale := 1.0
		if e.Scale != nil {
			scale = *e.Scale
		}
		registers = append(registers, HoldingRegister{
			Name:     e.Name,
			Address:  e.Address,
			DataType: dataType,
			Order:    order,
			Scale:    scale,
		})
	}

	return NewStore(coils, registers)
}
