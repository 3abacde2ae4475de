package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openfieldbus/commandbridge/internal/api/websocket"
	"github.com/openfieldbus/commandbridge/internal/config"
	"github.com/openfieldbus/commandbridge/internal/dispatch"
	"github.com/openfieldbus/commandbridge/internal/mapping"
	"github.com/openfieldbus/commandbridge/internal/types"
)

// Server is the read-only operations API: health, the configured device
// map, dispatch counters and the live event stream. It never issues
// fieldbus writes; commands only enter through the MQTT topic.
type Server struct {
	router     *gin.Engine
	store      *mapping.Store
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
	server     *http.Server
	wsHub      *websocket.Hub
}

func NewServer(cfg *config.Config, store *mapping.Store, dispatcher *dispatch.Dispatcher, logger *zap.Logger, wsHub *websocket.Hub) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:     gin.New(),
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		wsHub:      wsHub,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound,
			types.NewErrorResponse("not_found", "no such resource", c.Request.URL.Path))
	})

	// Public routes
	s.router.GET("/health", s.healthCheck)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/mappings", s.getMappings)
		v1.GET("/stats", s.getStats)

		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
