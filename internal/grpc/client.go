// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package grpc

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/holomush/holoauth/pkg/authv1"
)

// Client wraps a gRPC connection to the Auth service.
type Client struct {
	*authv1.Client

	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// ClientConfig holds configuration for the gRPC client.
type ClientConfig struct {
	// Address is the target gRPC server address (e.g., "localhost:9500")
	Address string

	// TLSConfig for mTLS authentication. If nil, insecure connection is used.
	TLSConfig *tls.Config

	// KeepaliveTime is how often to ping the server (default: 10s)
	KeepaliveTime time.Duration

	// KeepaliveTimeout is how long to wait for ping response (default: 5s)
	KeepaliveTimeout time.Duration

	// DialOptions are appended after the defaults.
	DialOptions []grpc.DialOption
}

// NewClient creates a client for the Auth service. The connection is
// established lazily on the first call.
func NewClient(_ context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Address == "" {
		return nil, oops.Code("GRPC_INVALID_CONFIG").Errorf("address is required")
	}

	if cfg.KeepaliveTime == 0 {
		cfg.KeepaliveTime = 10 * time.Second
	}
	if cfg.KeepaliveTimeout == 0 {
		cfg.KeepaliveTimeout = 5 * time.Second
	}

	opts := []grpc.DialOption{
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}

	if cfg.TLSConfig != nil {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(cfg.TLSConfig)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, oops.Code("GRPC_DIAL_FAILED").With("address", cfg.Address).Wrap(err)
	}

	return &Client{
		Client: authv1.NewClient(conn),
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

// Healthy reports whether the server's Auth service is SERVING.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: authv1.ServiceName})
	if err != nil {
		return false, oops.Code("GRPC_HEALTH_FAILED").Wrap(err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return oops.Code("GRPC_CLOSE_FAILED").Wrap(err)
		}
	}
	return nil
}
