// Package grpc exposes the storage health of the shortener over the standard
// gRPC health checking protocol.
package grpc

import (
	"fmt"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/atinyakov/shorturl/internal/intercepters"
)

// ServiceName is the health service name reported alongside the overall "" entry.
const ServiceName = "shorturl.Shortener"

// Server wraps the gRPC server and its health registry.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	port       int
	logger     *zap.Logger
}

// New creates a gRPC server. Unary and stream calls pass through logging and,
// when trusted is set, the subnet check.
func New(logger *zap.Logger, port int, trusted *net.IPNet) *Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(intercepters.InterceptorLogger(logger)),
			intercepters.SubnetIPInterceptor,
			intercepters.WithTrustedSubnet(trusted),
		),
		grpc.ChainStreamInterceptor(
			logging.StreamServerInterceptor(intercepters.InterceptorLogger(logger)),
			intercepters.StreamSubnetIPInterceptor,
			intercepters.WithTrustedSubnetStream(trusted),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	srv := &Server{
		grpcServer: s,
		health:     hs,
		port:       port,
		logger:     logger,
	}
	// storage is unknown until the first probe
	srv.SetStorageUp(false)

	return srv
}

// SetStorageUp flips both health entries between SERVING and NOT_SERVING.
func (s *Server) SetStorageUp(up bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if up {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Start listens on the configured port and serves until stopped.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.logger.Error("gRPC server failed to listen:", zap.Error(err))
		return err
	}

	s.logger.Info("gRPC server listening on port", zap.Int("port", s.port))
	return s.Serve(lis)
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
