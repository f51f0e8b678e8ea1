// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package grpc_test

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/authtest"
	"github.com/holomush/holoauth/internal/auth/memory"
	holoauthgrpc "github.com/holomush/holoauth/internal/grpc"
)

// harness runs a real orchestrator behind a bufconn gRPC server.
type harness struct {
	client   *holoauthgrpc.Client
	server   *holoauthgrpc.Server
	sessions *memory.SessionRepository
	clock    *authtest.Clock

	cancel context.CancelFunc
	done   chan error
}

func startHarness(observer holoauthgrpc.RPCObserver) (*harness, error) {
	hasher, err := auth.NewArgon2idHasherWithParams(authtest.FastParams)
	if err != nil {
		return nil, err
	}

	h := &harness{
		sessions: memory.NewSessionRepository(),
		clock:    authtest.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		done:     make(chan error, 1),
	}
	logger := slog.New(slog.DiscardHandler)

	creds, err := auth.NewCredentials(memory.NewCredentialRepository(), hasher, auth.WithCredentialsLogger(logger))
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessions(h.sessions, auth.WithSessionTTL(time.Hour), auth.WithClock(h.clock.Now))
	if err != nil {
		return nil, err
	}
	orch, err := auth.NewOrchestrator(creds, sessions, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	srv, err := holoauthgrpc.NewAuthServer(orch, holoauthgrpc.WithServerLogger(logger))
	if err != nil {
		return nil, err
	}

	lis := bufconn.Listen(1 << 20)
	h.server = holoauthgrpc.NewServer(holoauthgrpc.ServerConfig{Logger: logger, Observer: observer}, srv)

	var ctx context.Context
	ctx, h.cancel = context.WithCancel(context.Background())
	go func() { h.done <- h.server.Serve(ctx, lis) }()

	h.client, err = holoauthgrpc.NewClient(ctx, holoauthgrpc.ClientConfig{
		Address: "passthrough:///bufnet",
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	})
	if err != nil {
		h.cancel()
		<-h.done
		return nil, err
	}
	return h, nil
}

func (h *harness) close() error {
	clientErr := h.client.Close()
	h.cancel()
	if err := <-h.done; err != nil {
		return err
	}
	return clientErr
}
