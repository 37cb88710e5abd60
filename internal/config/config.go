package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DataBackendREST     = "rest"
	DataBackendPostgres = "postgres"

	IdentityBackendGoTrue = "gotrue"
	IdentityBackendStatic = "static"
)

type Config struct {
	Environment string `toml:"-"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// redis (sessions, notifications, rate limiting)
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// data service
	DataBackend       string   `toml:"data_backend"`
	DataApiURL        string   `toml:"data_api_url"`
	HttpClientTimeout Duration `toml:"http_client_timeout"`
	ReferenceCacheTTL Duration `toml:"reference_cache_ttl"`

	// ReferenceCacheSizeMB bounds the reference cache; one listing may use 1/1024 of it
	ReferenceCacheSizeMB int `toml:"reference_cache_size_mb"`

	// postgres, used with data_backend = "postgres"
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresUser   string `toml:"postgres_user"`
	PostgresDBName string `toml:"postgres_db_name"`
	// identity
	IdentityBackend string `toml:"identity_backend"`
	IdentityURL     string `toml:"identity_url"`
	// sessions & access
	SessionTTL                  Duration `toml:"session_ttl"`
	AdminRoles                  []string `toml:"admin_roles"`
	LoginRateLimitAllowedPerMin int      `toml:"login_rate_limit_per_min"`
	AllowedOrigins              []string `toml:"allowed_origins"`
}

// Duration lets durations be written as strings ("30s", "168h") in the TOML file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Toml struct {
	Development *Config `toml:"development"`
	Production  *Config `toml:"production"`
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("env [%s] missing in config", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the config section for env,
// with defaults filled in and validated.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.Environment = strings.ToLower(env)
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.DataBackend == "" {
		c.DataBackend = DataBackendREST
	}
	if c.IdentityBackend == "" {
		c.IdentityBackend = IdentityBackendGoTrue
	}
	if c.HttpClientTimeout.Duration == 0 {
		c.HttpClientTimeout.Duration = 30 * time.Second
	}
	if c.ReferenceCacheTTL.Duration == 0 {
		c.ReferenceCacheTTL.Duration = 5 * time.Minute
	}
	if c.ReferenceCacheSizeMB <= 0 {
		c.ReferenceCacheSizeMB = 10
	}
	if c.SessionTTL.Duration == 0 {
		c.SessionTTL.Duration = 24 * 7 * time.Hour
	}
	if c.LoginRateLimitAllowedPerMin == 0 {
		c.LoginRateLimitAllowedPerMin = 15
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
}

func (c *Config) Validate() error {
	switch c.DataBackend {
	case DataBackendREST:
		if c.DataApiURL == "" {
			return fmt.Errorf("data_api_url required for data backend [%s]", c.DataBackend)
		}
	case DataBackendPostgres:
		if c.PostgresHost == "" || c.PostgresDBName == "" {
			return fmt.Errorf("postgres_host and postgres_db_name required for data backend [%s]", c.DataBackend)
		}
	default:
		return fmt.Errorf("unknown data backend: %s", c.DataBackend)
	}

	switch c.IdentityBackend {
	case IdentityBackendGoTrue:
		if c.IdentityURL == "" {
			return fmt.Errorf("identity_url required for identity backend [%s]", c.IdentityBackend)
		}
	case IdentityBackendStatic:
	default:
		return fmt.Errorf("unknown identity backend: %s", c.IdentityBackend)
	}

	if c.RedisHost == "" || c.RedisPort == "" {
		return errors.New("redis_host and redis_port required")
	}

	return nil
}
