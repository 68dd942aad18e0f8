// Package health exposes the standard grpc.health.v1 service so
// orchestrators can probe the registrar without speaking its HTTP API.
package health

import (
	"context"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name registered alongside the overall ("") status.
const ServiceName = "registrar"

type Server struct {
	addr     string
	logger   *log.Logger
	grpc     *grpc.Server
	health   *health.Server
	listener net.Listener
}

func NewServer(addr string, logger *log.Logger) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{addr: addr, logger: logger, grpc: gs, health: hs}
}

// Listen binds the configured address.  Start calls it when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = l
	return nil
}

// Start serves until Shutdown.  It returns nil after a graceful stop.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Printf("grpc health listening on %s", s.listener.Addr())
	if err := s.grpc.Serve(s.listener); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// MarkNotServing flips every status to NOT_SERVING.
func (s *Server) MarkNotServing() {
	s.health.Shutdown()
}

// Shutdown reports NOT_SERVING, then stops gracefully, forcing the stop
// if ctx expires first.
func (s *Server) Shutdown(ctx context.Context) {
	s.MarkNotServing()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}
