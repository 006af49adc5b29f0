// Package grpc provides the gRPC API server.
//
// The server currently exposes the standard health service so load
// balancers and orchestrators can probe liveness; the pipeline service
// surface is HTTP-first.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/aescanero/dapo/internal/application/workers"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// serviceName is the health-check service identifier probed by clients.
const serviceName = "dapo.v1.Orchestrator"

// Server represents the gRPC API server
type Server struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
	pool     *workers.Pool
	logger   *zap.Logger

	stopCh chan struct{}
}

// Config holds gRPC server configuration
type Config struct {
	Port   int
	Pool   *workers.Pool
	Logger *zap.Logger
}

// NewServer creates a new gRPC server
func NewServer(cfg *Config) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	s := &Server{
		server:   grpcServer,
		listener: listener,
		health:   healthServer,
		pool:     cfg.Pool,
		logger:   cfg.Logger,
		stopCh:   make(chan struct{}),
	}

	return s, nil
}

// Start starts the gRPC server
func (s *Server) Start() error {
	s.logger.Info("starting gRPC server", zap.String("addr", s.listener.Addr().String()))

	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	go s.watchPool()

	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// watchPool mirrors worker pool health into the health service.
func (s *Server) watchPool() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			status := healthpb.HealthCheckResponse_SERVING
			if !s.pool.Healthy() {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			s.health.SetServingStatus(serviceName, status)
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gRPC server")

	close(s.stopCh)
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	s.server.GracefulStop()

	s.logger.Info("gRPC server shut down complete")
	return nil
}
