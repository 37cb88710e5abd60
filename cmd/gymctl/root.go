package main

import (
	"net"
	"os"

	"github.com/2beens/gymbook/internal/config"
	"github.com/2beens/gymbook/internal/logging"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	env        string
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "gymctl",
		Short: "Operator tooling for the gymbook backend",
		Long: `gymctl runs maintenance tasks against the gymbook backend's stores.

  $ gymctl db init                       # create the self-hosted postgres schema
  $ gymctl hash-password 's3cret'        # bcrypt hash for GYMBOOK_DEV_USER_PASSWORD_HASH
  $ gymctl sessions clean                # drop expired sessions from redis

Secrets are read from the same env vars the service uses.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logging.LoggerSetupParams{
				LogLevel:    opts.logLevel,
				LogToStdout: true,
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "development", "environment [prod | production | dev | development]")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "./config.toml", "path for the TOML config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level")

	rootCmd.AddCommand(
		newDBCmd(opts),
		newHashPasswordCmd(),
		newSessionsCmd(opts),
	)

	return rootCmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.env, o.configPath)
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: os.Getenv("GYMBOOK_REDIS_PASS"),
		DB:       0,
	})
}
