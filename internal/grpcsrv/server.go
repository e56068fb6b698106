package grpcsrv

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the health-checked service name besides the overall "".
const ServiceName = "rosterd.v1.Records"

// Server wraps a grpc.Server with the health service registered.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New creates a Server reporting SERVING for "" and ServiceName.
func New(opts ...grpc.ServerOption) *Server {
	hs := health.NewServer()
	opts = append([]grpc.ServerOption{grpc.UnaryInterceptor(LoggingInterceptor())}, opts...)
	gs := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(gs, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{grpc: gs, health: hs}
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC health service listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Drain flips every service to NOT_SERVING and keeps the listener open, so
// probes see the shutdown before connections go away.
func (s *Server) Drain() {
	s.health.Shutdown()
}

// Stop drains and then gracefully stops the server. Health Watch streams stay
// open after Drain, so if ctx ends before GracefulStop returns the remaining
// connections are closed hard.
func (s *Server) Stop(ctx context.Context) {
	s.Drain()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("gRPC graceful stop timed out, closing open streams", "err", ctx.Err())
		s.grpc.Stop()
		<-done
	}
}

// LoggingInterceptor logs every unary call at debug level with its status code.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		slog.Debug("grpc request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}
