// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/store"
)

// migrator is the part of store.Migrator the CLI drives.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage PostgreSQL schema migrations",
		Long: `Apply, roll back or inspect the embedded PostgreSQL migrations for the
credentials and sessions tables.`,
	}
	config.RegisterPostgresFlag(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations applied")
			return nil
		}),
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one step unless --all)",
		Args:  cobra.NoArgs,
	}
	all := down.Flags().Bool("all", false, "roll back every migration")
	down.RunE = withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
		var err error
		if *all {
			err = m.Down()
		} else {
			err = m.Steps(-1)
		}
		if err != nil {
			return err
		}
		cmd.Println("Rollback complete")
		return nil
	})
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			st, err := m.Status()
			if err != nil {
				return err
			}
			cmd.Println(formatVersion(st))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			st, err := m.Status()
			if err != nil {
				return err
			}
			cmd.Print(formatStatus(st))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the migration version without running migrations",
		Long: `Set the recorded migration version and clear the dirty flag. Use after
fixing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err
			}
			cmd.Printf("Version forced to %d\n", v)
			return nil
		}),
	})

	return cmd
}

func withMigrator(fn func(cmd *cobra.Command, m migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		if cfg.Storage.PostgresURL == "" {
			return oops.Code("CONFIG_INVALID").
				With("field", "storage.postgres_url").
				Errorf("postgres url is required (--postgres-url, config or DATABASE_URL)")
		}

		m, err := newMigrator(cfg.Storage.PostgresURL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil {
				cmd.PrintErrln("warning: failed to close migrator:", closeErr)
			}
		}()
		return fn(cmd, m, args)
	}
}

func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("version", s).Wrap(err)
	}
	if v < 0 {
		return 0, oops.Code("INVALID_VERSION").With("version", s).Errorf("version must be non-negative")
	}
	return v, nil
}

func formatVersion(st store.Status) string {
	if st.Version == 0 {
		return "no migrations applied"
	}
	out := strconv.FormatUint(uint64(st.Version), 10) + " " + store.MigrationName(st.Version)
	if st.Dirty {
		out += " (dirty)"
	}
	return out
}

func formatStatus(st store.Status) string {
	var b strings.Builder
	b.WriteString("current: " + formatVersion(st) + "\n")
	b.WriteString("latest:  " + strconv.FormatUint(uint64(st.Latest), 10) + "\n")
	if len(st.Pending) == 0 {
		b.WriteString("pending: none\n")
		return b.String()
	}
	b.WriteString("pending:\n")
	for _, v := range st.Pending {
		b.WriteString("  " + store.MigrationName(v) + "\n")
	}
	return b.String()
}
