package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"seawatch-worker-go/internal/api"
	"seawatch-worker-go/internal/config"
	"seawatch-worker-go/internal/logging"
	"seawatch-worker-go/internal/services"
)

func main() {
	// Console logging until the configured level is known
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	var extra []io.Writer
	if cfg.LogdyEnabled {
		w, _, err := logging.StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Logdy disabled")
		} else {
			extra = append(extra, w)
		}
	}
	logging.Setup(cfg, extra...)

	log.Info().
		Str("station_id", cfg.StationID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("model_backend", cfg.ModelBackend).
		Str("canvas_backend", cfg.CanvasBackend).
		Bool("alerts_enabled", cfg.AlertsEnabled).
		Msg("Starting SeaWatch Worker")

	sc, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create services")
	}

	deps := api.Dependencies{
		Detection: sc,
		States:    sc.Holder,
		Stream:    sc.Stream,
		Plant:     sc,
		Metrics:   sc.Metrics.Handler(),
	}
	if sc.Messaging != nil {
		deps.Messaging = sc.Messaging
	}
	server := api.NewServer(cfg, deps)
	// open MJPEG viewers would otherwise hold server.Shutdown until the deadline
	server.RegisterOnShutdown(sc.Stream.Shutdown)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	if cfg.AutoStart {
		g.Go(func() error {
			// the worker stays up without detection; it can be started over HTTP
			if err := sc.StartDetection(gctx); err != nil {
				log.Error().Err(err).Msg("Failed to auto-start detection")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received")

		serverCtx, cancelServer := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelServer()
		serverErr := server.Shutdown(serverCtx)

		servicesCtx, cancelServices := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelServices()
		return multierr.Combine(serverErr, sc.Shutdown(servicesCtx))
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker stopped with errors")
		os.Exit(1)
	}
	log.Info().Msg("Worker shutdown complete")
}
