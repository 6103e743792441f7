package grpcPack

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the variable table
const ServiceName = "genv.Table"

// Server serves grpc.health.v1.Health. The table reports SERVING while
// its last snapshot save succeeded.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     logrus.FieldLogger
}

// NewServer creates a gRPC server with the health service registered
func NewServer(logger logrus.FieldLogger) *Server {
	s := &Server{
		grpcServer: grpc.NewServer(
			grpc.ChainUnaryInterceptor(UnaryErrorInterceptor, UnaryLoggingInterceptor(logger)),
			grpc.ChainStreamInterceptor(StreamErrorInterceptor),
		),
		health: health.NewServer(),
		logger: logger.WithField("server", "grpc"),
	}

	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// ObservePersist follows the outcome of each snapshot save
func (s *Server) ObservePersist(_ int, _ time.Duration, err error) {
	if err != nil {
		s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Serve accepts connections on lis until Stop is called
func (s *Server) Serve(lis net.Listener) error {
	s.logger.WithField("addr", lis.Addr().String()).Info("listening")
	if err := s.grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops gracefully, forcing the
// stop when ctx is done first.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
		<-done
	}
	s.logger.Info("stopped")
}
