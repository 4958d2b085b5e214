// Package health exposes the standard gRPC health service, driven by
// periodic dependency probes.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	defaultInterval = 15 * time.Second
	probeTimeout    = 5 * time.Second
)

// Probe checks one dependency. Service is the name reported to health clients.
type Probe struct {
	Service string
	Check   func(ctx context.Context) error
}

// Server hosts the gRPC health service.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	probes     []Probe
	interval   time.Duration
}

// New listens on addr. Every probe's service starts NOT_SERVING until the
// first round of probes has run.
func New(addr string, interval time.Duration, probes ...Probe) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	for _, p := range probes {
		healthServer.SetServingStatus(p.Service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		probes:     probes,
		interval:   interval,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve runs the probes and the gRPC server until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	slog.Info("Health server listening", "addr", s.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	s.probeOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.probeOnce(ctx)
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpcServer.GracefulStop()
			return stopped(<-serveErr)
		case err := <-serveErr:
			return stopped(err)
		}
	}
}

func stopped(err error) error {
	if err == nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve gRPC health: %w", err)
}

func (s *Server) probeOnce(ctx context.Context) {
	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for _, p := range s.probes {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := p.Check(pctx)
		cancel()
		if err != nil {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			overall = status
			slog.Warn("Health probe failed", "service", p.Service, "error", err)
		}
		s.health.SetServingStatus(p.Service, status)
	}
	s.health.SetServingStatus("", overall)
}
