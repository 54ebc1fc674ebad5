package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"seawatch-worker-go/internal/config"
	"seawatch-worker-go/internal/logging"
	"seawatch-worker-go/internal/services"
	"seawatch-worker-go/internal/services/detection/remote"
)

// Serves the local SSD model over gRPC so workers can run with MODEL_BACKEND=remote.
func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	logging.Setup(cfg)

	model := services.NewDNNModel(cfg)
	defer model.Close()

	addr := fmt.Sprintf(":%d", cfg.DetectorGRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("Failed to listen")
	}

	srv := remote.NewServer(model)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("model", model.Name()).Msg("Starting detector")
		return srv.Serve(gctx, lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received")
		srv.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Detector stopped with errors")
		os.Exit(1)
	}
	log.Info().Msg("Detector shutdown complete")
}
