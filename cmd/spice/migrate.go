package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every command migrates on startup; this one only migrates.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			slog.Info("Running database migrations",
				"driver", a.cfg.Database.Driver,
				"path", a.cfg.Database.Path)

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer func() { _ = store.Close() }()

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Database migrations completed successfully"))
			return nil
		},
	}
}
