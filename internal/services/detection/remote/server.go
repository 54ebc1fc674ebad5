package remote

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"seawatch-worker-go/internal/models"
)

// Model is the detector served over gRPC.
type Model interface {
	Load(ctx context.Context) error
	Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error)
}

// Server serves one Model. Requests are handled one at a time.
type Server struct {
	model  Model
	grpc   *grpc.Server
	health *health.Server
	mu     sync.Mutex
}

func NewServer(model Model, opts ...grpc.ServerOption) *Server {
	s := &Server{
		model:  model,
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
	}
	RegisterDetectorServer(s.grpc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Serve loads the model, then serves on lis until Stop. A model that fails
// to load is reported before anything is served.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	if err := s.model.Load(ctx); err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	log.Info().Str("addr", lis.Addr().String()).Msg("detector_grpc_serving")
	return s.grpc.Serve(lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) Detect(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	frame, err := decodeFrame(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.mu.Lock()
	dets, err := s.model.Detect(ctx, frame)
	s.mu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			return nil, status.FromContextError(ctx.Err()).Err()
		}
		log.Warn().Err(err).Msg("detector_grpc_detect_failed")
		return nil, status.Error(codes.Internal, err.Error())
	}

	out, err := detectionsToStruct(dets)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
