package main

import (
	"fmt"
	"os"

	"github.com/2beens/gymbook/internal/config"
	"github.com/2beens/gymbook/internal/datasvc"
	"github.com/2beens/gymbook/internal/db"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newDBCmd(opts *rootOptions) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Self-hosted postgres store maintenance",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the tables served by the postgres data backend",
		Long: `Create the bodypart, category, exercise and workout_history tables.
Statements are idempotent, running init twice is safe.

The postgres password is read from GYMBOOK_POSTGRES_PASS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.DataBackend != config.DataBackendPostgres {
				return fmt.Errorf("env [%s] uses data backend [%s], not postgres", opts.env, cfg.DataBackend)
			}

			ctx := cmd.Context()
			pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
				DBHost:     cfg.PostgresHost,
				DBPort:     cfg.PostgresPort,
				DBName:     cfg.PostgresDBName,
				DBUser:     cfg.PostgresUser,
				DBPassword: os.Getenv("GYMBOOK_POSTGRES_PASS"),
			})
			if err != nil {
				return fmt.Errorf("new db pool: %w", err)
			}
			defer pool.Close()

			log.Debugf("applying schema to %s:%s/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)
			if err := datasvc.ApplySchema(ctx, pool); err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ schema applied to %s\n", cfg.PostgresDBName)
			return nil
		},
	})

	return dbCmd
}
