package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/2beens/gymbook/internal"
	"github.com/2beens/gymbook/internal/config"
	"github.com/2beens/gymbook/internal/logging"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	logCloser := logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "gymbook-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)
	log.Debugf("data backend: [%s], identity backend: [%s]", cfg.DataBackend, cfg.IdentityBackend)

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	dataApiKey := os.Getenv("GYMBOOK_DATA_API_KEY")
	if dataApiKey == "" && cfg.DataBackend == config.DataBackendREST {
		log.Errorf("data api key not set. use GYMBOOK_DATA_API_KEY")
	}

	redisPassword := os.Getenv("GYMBOOK_REDIS_PASS")
	if redisPassword == "" {
		log.Errorf("redis password not set. use GYMBOOK_REDIS_PASS")
	}

	postgresPassword := os.Getenv("GYMBOOK_POSTGRES_PASS")
	if postgresPassword == "" && cfg.DataBackend == config.DataBackendPostgres {
		log.Warnln("postgres password not set. use GYMBOOK_POSTGRES_PASS")
	}

	devUserEmail := os.Getenv("GYMBOOK_DEV_USER_EMAIL")
	devUserPasswordHash := os.Getenv("GYMBOOK_DEV_USER_PASSWORD_HASH")
	if cfg.IdentityBackend == config.IdentityBackendStatic && (devUserEmail == "" || devUserPasswordHash == "") {
		log.Errorf("dev user not set. use GYMBOOK_DEV_USER_EMAIL and GYMBOOK_DEV_USER_PASSWORD_HASH")
	}

	if otelServiceName := os.Getenv("OTEL_SERVICE_NAME"); otelServiceName == "" {
		log.Warnln("OTEL_SERVICE_NAME env var not set")
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			VersionInfo:             versionInfo,
			DataApiKey:              dataApiKey,
			RedisPassword:           redisPassword,
			PostgresPassword:        postgresPassword,
			DevUserEmail:            devUserEmail,
			DevUserPasswordHash:     devUserPasswordHash,
			HoneycombTracingEnabled: honeycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	if err := server.GracefulShutdown(); err != nil {
		log.Errorf("graceful shutdown: %s", err)
	}

	if logCloser != nil {
		if err := logCloser.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close log writer: %s\n", err)
		}
	}
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(stdout)), nil
}
