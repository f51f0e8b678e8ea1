// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	cryptotls "crypto/tls"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/config"
	holoGRPC "github.com/holomush/holoauth/internal/grpc"
	"github.com/holomush/holoauth/internal/logging"
	"github.com/holomush/holoauth/internal/observability"
	"github.com/holomush/holoauth/internal/tls"
	"github.com/holomush/holoauth/internal/tracing"
	"github.com/holomush/holoauth/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// serveDeps are the process-level seams tests replace.
type serveDeps struct {
	// Listen opens the gRPC listener. Default: net.Listen.
	Listen func(network, addr string) (net.Listener, error)

	// Ready is called once the gRPC listener is bound.
	Ready func(grpcAddr, metricsAddr string)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication gRPC server",
		Long: `Start the Auth gRPC service with the configured credential and session
backends, plus the metrics/health HTTP endpoint when metrics.addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServe starts the service and blocks until ctx is cancelled, a signal
// arrives or a server fails.
func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *serveDeps) error {
	if deps == nil {
		deps = &serveDeps{}
	}
	if deps.Listen == nil {
		deps.Listen = net.Listen
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logging.SetDefault("holoauth", version, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, "holoauth", version, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	logger.Info("starting holoauth",
		"grpc_addr", cfg.GRPC.Addr,
		"credentials", cfg.Storage.Credentials,
		"sessions", cfg.Storage.Sessions,
		"session_ttl", cfg.Session.TTL.String(),
	)

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			errutil.LogError(logger, "failed to close backends", err)
		}
	}()

	obsServer := observability.NewServer(cfg.Metrics.Addr, b.Ready, logger)
	metrics := obsServer.Metrics()

	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Password.Params())
	if err != nil {
		return err
	}
	credentials, err := auth.NewCredentials(b.Credentials, hasher, auth.WithCredentialsLogger(logger))
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessions(b.Sessions, auth.WithSessionTTL(cfg.Session.TTL))
	if err != nil {
		return err
	}
	orchestrator, err := auth.NewOrchestrator(credentials, sessions,
		auth.WithLogger(logger),
		auth.WithObserver(metrics),
	)
	if err != nil {
		return err
	}
	authServer, err := holoGRPC.NewAuthServer(orchestrator, holoGRPC.WithServerLogger(logger))
	if err != nil {
		return err
	}

	var tlsConfig *cryptotls.Config
	if cfg.GRPC.TLS.Enabled {
		var generated bool
		tlsConfig, generated, err = tls.EnsureServerTLS(cfg.GRPC.TLS.CertsDir, cfg.GRPC.TLS.Hosts...)
		if err != nil {
			return err
		}
		if generated {
			logger.Info("generated TLS certificates", "certs_dir", cfg.GRPC.TLS.CertsDir)
		}
	}

	server := holoGRPC.NewServer(holoGRPC.ServerConfig{
		TLSConfig: tlsConfig,
		Logger:    logger,
		Observer:  metrics,
	}, authServer)

	listener, err := deps.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return oops.Code("GRPC_LISTEN_FAILED").With("addr", cfg.GRPC.Addr).Wrap(err)
	}

	if cfg.Metrics.Addr != "" {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			_ = listener.Close()
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
	}

	// Registered after the backend close, so the purger has exited before
	// the stores it uses are closed.
	if cfg.Session.PurgeInterval > 0 && cfg.Session.TTL > 0 {
		stopPurger := startPurger(ctx, sessions, metrics, cfg.Session.PurgeInterval, logger)
		defer stopPurger()
	}

	cmd.Println("holoauth serving on " + listener.Addr().String())
	if deps.Ready != nil {
		deps.Ready(listener.Addr().String(), obsServer.Addr())
	}

	if err := server.Serve(ctx, listener); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// sessionPurger is the part of auth.Sessions the purge loop needs.
type sessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// startPurger runs runPurger in the background. The returned stop function
// cancels the loop and blocks until it has returned.
func startPurger(ctx context.Context, sessions sessionPurger, metrics *observability.Metrics, interval time.Duration, logger *slog.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		runPurger(ctx, sessions, metrics, interval, logger)
	}()
	return func() {
		cancel()
		<-done
	}
}

// runPurger removes expired sessions every interval until ctx ends. Failures
// are logged and retried on the next tick.
func runPurger(ctx context.Context, sessions sessionPurger, metrics *observability.Metrics, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errutil.LogErrorContext(ctx, logger, "session purge failed", err)
				continue
			}
			metrics.ObservePurge(n)
			if n > 0 {
				logger.DebugContext(ctx, "purged expired sessions", "count", n)
			}
		}
	}
}

// monitorServerErrors cancels ctx when errCh delivers an error. It returns
// when the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
