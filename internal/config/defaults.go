package config

import (
	"fmt"
	"os"
)

const (
	defaultInterval       = "30s"
	defaultQueryTimeout   = "10s"
	defaultMaxConcurrency = 4
	defaultOraclePort     = 1521
	defaultMaxOpenConns   = 4
	defaultMaxIdleConns   = 2
	defaultConnLifetime   = "30m"
	defaultPingTimeout    = "5s"
	defaultListenAddress  = ":9161"
	defaultMetricsPath    = "/metrics"
	defaultHealthPath     = "/health"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

var defaultAppliers = []DefaultApplier{
	&DatabaseDefaultApplier{},
	&CollectionDefaultApplier{},
	&HTTPDefaultApplier{},
	&LoggingDefaultApplier{},
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("apply %s defaults: %w", a.Domain(), err)
		}
	}
	return nil
}

// DatabaseDefaultApplier handles connection pool defaults.
type DatabaseDefaultApplier struct{}

func (d *DatabaseDefaultApplier) Domain() string { return "database" }

func (d *DatabaseDefaultApplier) ApplyDefaults(cfg *Config) error {
	db := &cfg.Database
	if db.DSN == "" && db.Port == 0 {
		db.Port = defaultOraclePort
	}
	if db.MaxOpenConns <= 0 {
		db.MaxOpenConns = defaultMaxOpenConns
	}
	if db.MaxIdleConns <= 0 {
		db.MaxIdleConns = defaultMaxIdleConns
	}
	if db.MaxIdleConns > db.MaxOpenConns {
		db.MaxIdleConns = db.MaxOpenConns
	}
	if db.ConnMaxLifetime == "" {
		db.ConnMaxLifetime = defaultConnLifetime
	}
	if db.PingTimeout == "" {
		db.PingTimeout = defaultPingTimeout
	}
	return nil
}

// CollectionDefaultApplier handles polling defaults. An explicitly configured interval
// is never replaced, so that "0" still fails validation.
type CollectionDefaultApplier struct{}

func (c *CollectionDefaultApplier) Domain() string { return "collection" }

func (c *CollectionDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Collection.Interval == "" {
		cfg.Collection.Interval = defaultInterval
	}
	if cfg.Collection.QueryTimeout == "" {
		cfg.Collection.QueryTimeout = defaultQueryTimeout
	}
	if cfg.Collection.MaxConcurrency == 0 {
		cfg.Collection.MaxConcurrency = defaultMaxConcurrency
	}
	return nil
}

// HTTPDefaultApplier handles scrape endpoint defaults.
type HTTPDefaultApplier struct{}

func (h *HTTPDefaultApplier) Domain() string { return "http" }

func (h *HTTPDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.HTTP.ListenAddress == "" {
		cfg.HTTP.ListenAddress = defaultListenAddress
	}
	if cfg.HTTP.MetricsPath == "" {
		cfg.HTTP.MetricsPath = defaultMetricsPath
	}
	if cfg.HTTP.HealthPath == "" {
		cfg.HTTP.HealthPath = defaultHealthPath
	}
	return nil
}

// LoggingDefaultApplier normalizes level and format, falling back to info/text.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	lvl, err := logLevels.NormalizeWithError(string(cfg.Logging.Level))
	if err != nil {
		if cfg.Logging.Level != "" {
			fmt.Fprintf(os.Stderr, "config normalization: logging.level: %v; using %q\n", err, LogLevelInfo)
		}
		lvl = LogLevelInfo
	}
	cfg.Logging.Level = lvl

	format, err := logFormats.NormalizeWithError(string(cfg.Logging.Format))
	if err != nil {
		if cfg.Logging.Format != "" {
			fmt.Fprintf(os.Stderr, "config normalization: logging.format: %v; using %q\n", err, LogFormatText)
		}
		format = LogFormatText
	}
	cfg.Logging.Format = format
	return nil
}
