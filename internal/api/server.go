package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"seawatch-worker-go/internal/api/handlers"
	"seawatch-worker-go/internal/config"
)

// Dependencies are the services the HTTP layer exposes.
type Dependencies struct {
	Detection handlers.DetectionController
	States    handlers.StateSource
	Stream    handlers.StreamPublisher
	Plant     handlers.PlantAnalyzer
	Metrics   http.Handler

	// Messaging is nil when alerts are disabled
	Messaging handlers.ConnectionChecker
}

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler    *handlers.HealthHandler
	systemHandler    *handlers.SystemHandler
	detectionHandler *handlers.DetectionHandler
	plantHandler     *handlers.PlantHandler
	metricsHandler   http.Handler
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:           cfg,
		router:           gin.New(),
		healthHandler:    handlers.NewHealthHandler(cfg.StationID, cfg.Version, deps.Messaging),
		systemHandler:    handlers.NewSystemHandler(cfg.StationID),
		detectionHandler: handlers.NewDetectionHandler(deps.Detection, deps.States, deps.Stream),
		plantHandler:     handlers.NewPlantHandler(deps.Plant),
		metricsHandler:   deps.Metrics,
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting SeaWatch Worker API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RegisterOnShutdown runs f when Shutdown begins, before connections drain.
func (s *Server) RegisterOnShutdown(f func()) {
	s.server.RegisterOnShutdown(f)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping SeaWatch Worker API")
	return s.server.Shutdown(ctx)
}
