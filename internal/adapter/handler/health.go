package handler

import (
	"net"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer exposes the standard gRPC health service for orchestrators
// that probe over gRPC instead of HTTP.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	logger hclog.Logger
}

func NewHealthServer(logger hclog.Logger) *HealthServer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := grpc.NewServer()
	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, h)
	reflection.Register(s)

	h.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{server: s, health: h, logger: logger.Named("health")}
}

// SetServing flips both the overall and the named service status.
func (s *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(serviceName, status)
}

// Serve blocks until Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("🚀 gRPC health listening", "addr", lis.Addr().String())
	return s.server.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
