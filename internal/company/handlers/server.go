// Package handlers provides the HTTP and gRPC server implementations for
// the company service, bridging the transport layer and business logic
// and translating between JSON payloads and domain models.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService is the service name reported by the gRPC health server.
const HealthService = "company.v1.CompanyService"

const shutdownTimeout = 5 * time.Second

// Server holds references to an HTTP server and an optional gRPC server
// that reports service health.
type Server struct {
	grpcServer   *grpc.Server
	health       *health.Server
	httpServer   *http.Server
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string

	mu        sync.Mutex
	httpAddr  net.Addr
	grpcAddr  net.Addr
	errChan   chan error
	serveDone sync.WaitGroup
}

// NewServer constructs a Server listening on httpEndpoint and, unless
// grpcEndpoint is empty, on grpcEndpoint for gRPC health checks.
func NewServer(
	httpEndpoint string,
	grpcEndpoint string,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	s := &Server{
		httpServer: &http.Server{
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:       logger.Named("server"),
		grpcEndpoint: grpcEndpoint,
		httpEndpoint: httpEndpoint,
		errChan:      make(chan error, 2),
	}
	if grpcEndpoint != "" {
		s.grpcServer = grpc.NewServer(grpcOpts...)
		s.health = health.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
		reflection.Register(s.grpcServer)
		s.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return s
}

// RegisterHTTPHandler installs the HTTP handler stack.
func (s *Server) RegisterHTTPHandler(h http.Handler) {
	s.httpServer.Handler = h
}

// Start binds both listeners and serves in the background. Bind errors are
// returned directly; serve errors arrive on Errors.
func (s *Server) Start() error {
	if s.httpServer.Handler == nil {
		return errors.New("no HTTP handler registered")
	}

	httpLis, err := net.Listen("tcp", s.httpEndpoint)
	if err != nil {
		return fmt.Errorf("HTTP listen error: %w", err)
	}

	var grpcLis net.Listener
	if s.grpcServer != nil {
		grpcLis, err = net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("gRPC listen error: %w", err)
		}
	}

	s.mu.Lock()
	s.httpAddr = httpLis.Addr()
	if grpcLis != nil {
		s.grpcAddr = grpcLis.Addr()
	}
	s.mu.Unlock()

	s.serveDone.Add(1)
	go func() {
		defer s.serveDone.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", httpLis.Addr().String()))
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	if grpcLis != nil {
		s.serveDone.Add(1)
		go func() {
			defer s.serveDone.Done()
			s.logger.Info("Starting gRPC server", zap.String("endpoint", grpcLis.Addr().String()))
			if err := s.grpcServer.Serve(grpcLis); err != nil {
				s.errChan <- fmt.Errorf("gRPC serve error: %w", err)
			}
		}()
		s.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	}
	return nil
}

// Errors reports fatal serve errors.
func (s *Server) Errors() <-chan error {
	return s.errChan
}

// HTTPAddr returns the bound HTTP address, nil before Start.
func (s *Server) HTTPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// GRPCAddr returns the bound gRPC address, nil before Start or when gRPC
// is disabled.
func (s *Server) GRPCAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grpcAddr
}

// Stop gracefully shuts down both servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.grpcServer != nil {
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	s.serveDone.Wait()

	s.logger.Info("Servers stopped")
}
