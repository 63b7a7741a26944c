package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
)

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = "oraexporter.yaml"

// Config is the exporter configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Collection CollectionConfig `yaml:"collection"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DatabaseConfig holds connection parameters for the monitored Oracle instance.
// Either DSN or Host/Service/User must be set.
type DatabaseConfig struct {
	DSN             string            `yaml:"dsn,omitempty"`
	Host            string            `yaml:"host,omitempty"`
	Port            int               `yaml:"port,omitempty"`
	Service         string            `yaml:"service,omitempty"`
	User            string            `yaml:"user,omitempty"`
	Password        string            `yaml:"password,omitempty"`
	Options         map[string]string `yaml:"options,omitempty"` // go-ora URL options, e.g. SSL, TIMEOUT
	MaxOpenConns    int               `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int               `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime string            `yaml:"conn_max_lifetime,omitempty"`
	PingTimeout     string            `yaml:"ping_timeout,omitempty"`
}

// CollectionConfig controls the polling loop.
type CollectionConfig struct {
	Interval       string `yaml:"interval,omitempty"`      // e.g. "30s"
	QueryTimeout   string `yaml:"query_timeout,omitempty"` // per-source bound
	MaxConcurrency int    `yaml:"max_concurrency,omitempty"`
}

// HTTPConfig controls the scrape endpoint.
type HTTPConfig struct {
	ListenAddress string `yaml:"listen_address,omitempty"`
	MetricsPath   string `yaml:"metrics_path,omitempty"`
	HealthPath    string `yaml:"health_path,omitempty"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// IntervalDuration returns the parsed collection interval. Only meaningful after validation.
func (c CollectionConfig) IntervalDuration() time.Duration { return mustDuration(c.Interval) }

// QueryTimeoutDuration returns the parsed per-source query timeout.
func (c CollectionConfig) QueryTimeoutDuration() time.Duration { return mustDuration(c.QueryTimeout) }

func (c DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return mustDuration(c.ConnMaxLifetime)
}

func (c DatabaseConfig) PingTimeoutDuration() time.Duration { return mustDuration(c.PingTimeout) }

func mustDuration(raw string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return d
}

// Load reads, defaults and validates the configuration file at configPath.
// Variables from .env/.env.local are loaded first and ${VAR} references in the
// file are expanded from the environment.
func Load(configPath string) (*Config, error) {
	if loaded, err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: could not load %s: %v\n", loaded, err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read configuration file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}
	return Parse(data)
}

// Parse decodes YAML configuration data, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse configuration").Fatal().Build()
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnv replaces ${VAR} and $VAR from the environment. $$ yields a literal $.
func expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		if key == "$" {
			return "$"
		}
		return os.Getenv(key)
	})
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	example := Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     defaultOraclePort,
			Service:  "ORCL",
			User:     "${ORACLE_USER}",
			Password: "${ORACLE_PASSWORD}",
		},
		Collection: CollectionConfig{
			Interval:       defaultInterval,
			QueryTimeout:   defaultQueryTimeout,
			MaxConcurrency: defaultMaxConcurrency,
		},
		HTTP: HTTPConfig{
			ListenAddress: defaultListenAddress,
			MetricsPath:   defaultMetricsPath,
			HealthPath:    defaultHealthPath,
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := "# oraexporter configuration. ${VAR} references are expanded from the environment and .env.\n" +
		"# Write $$ for a literal $ (for example in passwords).\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
