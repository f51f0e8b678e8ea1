// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/tls"
	"github.com/holomush/holoauth/internal/xdg"
)

type certsConfig struct {
	certsDir string
	hosts    []string
	clients  []string
	newCA    bool
}

// NewCertsCmd creates the certs subcommand.
func NewCertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Manage mTLS certificates for the gRPC listener",
	}

	cfg := &certsConfig{}
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Issue server and client certificates",
		Long: `Issue a server certificate and one client certificate per --client name,
signed by the CA in the certs directory. A CA is created when none exists or
when --new-ca is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCertsGenerate(cmd, cfg)
		},
	}
	generate.Flags().StringVar(&cfg.certsDir, "certs-dir", "", "certificates directory (default: XDG_CONFIG_HOME/holoauth/certs)")
	generate.Flags().StringSliceVar(&cfg.hosts, "host", nil, "extra DNS name or IP for the server certificate (repeatable)")
	generate.Flags().StringSliceVar(&cfg.clients, "client", []string{tls.ClientName}, "client certificate name (repeatable)")
	generate.Flags().BoolVar(&cfg.newCA, "new-ca", false, "replace the existing CA")
	cmd.AddCommand(generate)

	return cmd
}

func runCertsGenerate(cmd *cobra.Command, cfg *certsConfig) error {
	dir := cfg.certsDir
	if dir == "" {
		dir = xdg.CertsDir()
	}
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}

	var ca *tls.CA
	var err error
	if !cfg.newCA {
		ca, err = tls.LoadCA(dir)
		if err != nil && fileExists(filepath.Join(dir, tls.CAName+".crt")) {
			return err
		}
	}
	caIsNew := ca == nil
	if caIsNew {
		if ca, err = tls.GenerateCA(tls.DefaultServerName); err != nil {
			return err
		}
	}

	server, err := tls.GenerateServerCert(ca, cfg.hosts...)
	if err != nil {
		return err
	}
	leaves := []*tls.Cert{server}
	for _, name := range cfg.clients {
		client, err := tls.GenerateClientCert(ca, name)
		if err != nil {
			return err
		}
		leaves = append(leaves, client)
	}

	saveCA := ca
	if !caIsNew {
		saveCA = nil
	}
	if err := tls.SaveCertificates(dir, saveCA, leaves...); err != nil {
		return err
	}

	if caIsNew {
		cmd.Println("Created CA " + filepath.Join(dir, tls.CAName+".crt"))
	}
	for _, leaf := range leaves {
		cmd.Println("Issued " + filepath.Join(dir, leaf.Name+".crt"))
	}
	return nil
}

// fileExists treats permission errors as existing so an unreadable CA is
// reported instead of replaced.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
