// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the holoauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holoauth",
		Short: "holoauth - credential and session authentication service",
		Long: `holoauth registers username/password credentials, exchanges them for
session tokens and validates or revokes those tokens over gRPC.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/holoauth/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewCertsCmd())
	cmd.AddCommand(NewHealthCmd())

	return cmd
}
