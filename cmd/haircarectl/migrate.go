package main

import (
	"github.com/spf13/cobra"

	"github.com/haircarepro/haircarepro/internal/migration"
)

func newMigrateCmd(c *cli) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner := migration.NewRunner(c.cfg.MigrationsPath, c.cfg.DatabaseURL, migration.DefaultEngine, c.logger)
			if err := runner.Up(); err != nil {
				return err
			}
			c.printf("migrations applied\n")
			return nil
		},
	})

	return migrateCmd
}
