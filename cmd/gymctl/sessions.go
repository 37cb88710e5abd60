package main

import (
	"fmt"

	"github.com/2beens/gymbook/internal/auth"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Redis session store maintenance",
	}

	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove expired and dangling sessions",
		Long: `Run one scan-and-clean pass over the session store, the same pass the
service runs periodically. The redis password is read from GYMBOOK_REDIS_PASS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			rdb := newRedisClient(cfg)
			defer func() {
				if err := rdb.Close(); err != nil {
					log.Errorf("close redis client: %s", err)
				}
			}()

			ctx := cmd.Context()
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}

			auth.NewAuthService(cfg.SessionTTL.Duration, rdb).ScanAndClean(ctx)
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ sessions cleaned")
			return nil
		},
	})

	return sessionsCmd
}
