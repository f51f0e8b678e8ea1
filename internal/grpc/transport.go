// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/holomush/holoauth/pkg/authv1"
)

// ServerConfig holds configuration for the gRPC server.
type ServerConfig struct {
	// TLSConfig enables TLS (mTLS when it requires client certificates).
	// If nil, the server accepts plaintext connections.
	TLSConfig *tls.Config

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Observer receives per-RPC outcomes. Optional.
	Observer RPCObserver
}

// Server serves the Auth service and the standard gRPC health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer creates a Server with srv registered. Extra options are appended
// after the defaults.
func NewServer(cfg ServerConfig, srv authv1.AuthServer, opts ...grpc.ServerOption) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interceptors := []grpc.UnaryServerInterceptor{
		RecoveryInterceptor(logger),
		LoggingInterceptor(logger),
	}
	if cfg.Observer != nil {
		interceptors = append(interceptors, ObserverInterceptor(cfg.Observer))
	}

	serverOpts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
		// Matches the client's 10s keepalive pings.
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	if cfg.TLSConfig != nil {
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(cfg.TLSConfig)))
	}
	serverOpts = append(serverOpts, opts...)

	gs := grpc.NewServer(serverOpts...)
	authv1.RegisterAuthServer(gs, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(authv1.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{grpc: gs, health: hs, logger: logger}
}

// Serve accepts connections on lis until ctx is cancelled, then drains
// in-flight RPCs and returns.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.logger.InfoContext(ctx, "grpc server listening", "addr", lis.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpc.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.Stop(context.Background())
		return unwrapServeErr(<-serveErr)
	case err := <-serveErr:
		s.health.Shutdown()
		return unwrapServeErr(err)
	}
}

// Stop marks the server NOT_SERVING and drains in-flight RPCs. If ctx ends
// first the remaining connections are closed forcibly.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "graceful stop timed out, forcing")
		s.grpc.Stop()
		<-done
	}
}

func unwrapServeErr(err error) error {
	if err == nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return oops.Code("GRPC_SERVE_FAILED").Wrap(err)
}
