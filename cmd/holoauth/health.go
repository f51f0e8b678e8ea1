// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	cryptotls "crypto/tls"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	holoGRPC "github.com/holomush/holoauth/internal/grpc"
	"github.com/holomush/holoauth/internal/tls"
	"github.com/holomush/holoauth/internal/xdg"
)

type healthConfig struct {
	addr       string
	tls        bool
	certsDir   string
	clientName string
	serverName string
	timeout    time.Duration
}

// NewHealthCmd creates the health subcommand.
func NewHealthCmd() *cobra.Command {
	cfg := &healthConfig{}
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that a running holoauth server is SERVING",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd.Context(), cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", "localhost:9500", "server gRPC address")
	cmd.Flags().BoolVar(&cfg.tls, "tls", false, "connect with mutual TLS")
	cmd.Flags().StringVar(&cfg.certsDir, "certs-dir", "", "certificates directory (default: XDG_CONFIG_HOME/holoauth/certs)")
	cmd.Flags().StringVar(&cfg.clientName, "client", tls.ClientName, "client certificate name")
	cmd.Flags().StringVar(&cfg.serverName, "server-name", tls.DefaultServerName, "expected server certificate name")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 5*time.Second, "check timeout")

	return cmd
}

func runHealth(ctx context.Context, cmd *cobra.Command, cfg *healthConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var tlsConfig *cryptotls.Config
	if cfg.tls {
		dir := cfg.certsDir
		if dir == "" {
			dir = xdg.CertsDir()
		}
		var err error
		if tlsConfig, err = tls.LoadClientTLS(dir, cfg.clientName, cfg.serverName); err != nil {
			return err
		}
	}

	client, err := holoGRPC.NewClient(ctx, holoGRPC.ClientConfig{Address: cfg.addr, TLSConfig: tlsConfig})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	ok, err := client.Healthy(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return oops.Code("NOT_SERVING").With("addr", cfg.addr).Errorf("holoauth at %s is not serving", cfg.addr)
	}
	cmd.Println("SERVING")
	return nil
}
