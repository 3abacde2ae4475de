package rest

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

type coilView struct {
	Name    string `json:"name"`
	Address uint16 `json:"address"`
}

type registerView struct {
	Name     string  `json:"name"`
	Address  uint16  `json:"address"`
	DataType string  `json:"data_type"`
	Order    string  `json:"byte_order"`
	Scale    float64 `json:"scale"`
}

// GET /api/v1/mappings
func (s *Server) getMappings(c *gin.Context) {
	coils := s.store.Coils()
	sort.Slice(coils, func(i, j int) bool { return coils[i].Name < coils[j].Name })

	registers := s.store.HoldingRegisters()
	sort.Slice(registers, func(i, j int) bool { return registers[i].Name < registers[j].Name })

	coilViews := make([]coilView, 0, len(coils))
	for _, coil := range coils {
		coilViews = append(coilViews, coilView{Name: coil.Name, Address: coil.Address})
	}

	registerViews := make([]registerView, 0, len(registers))
	for _, reg := range registers {
		registerViews = append(registerViews, registerView{
			Name:     reg.Name,
			Address:  reg.Address,
			DataType: string(reg.DataType),
			Order:    reg.Order.String(),
			Scale:    reg.Scale,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"coils":             coilViews,
		"holding_registers": registerViews,
	})
}

// GET /api/v1/stats
func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.dispatcher.Snapshot())
}
