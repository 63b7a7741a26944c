package config

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
)

// ValidateConfig validates a defaulted configuration. Every failure is a fatal
// configuration error: the exporter must not start serving.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateCollection(); err != nil {
		return err
	}
	if err := cv.validateDatabase(); err != nil {
		return err
	}
	return cv.validateHTTP()
}

func (cv *configurationValidator) validateCollection() error {
	c := cv.config.Collection
	if err := positiveDuration("collection.interval", c.Interval); err != nil {
		return err
	}
	if err := positiveDuration("collection.query_timeout", c.QueryTimeout); err != nil {
		return err
	}
	if c.MaxConcurrency < 1 {
		return invalid("collection.max_concurrency", c.MaxConcurrency, "must be at least 1")
	}
	return nil
}

func (cv *configurationValidator) validateDatabase() error {
	db := cv.config.Database
	if strings.TrimSpace(db.DSN) == "" {
		var missing []string
		if strings.TrimSpace(db.Host) == "" {
			missing = append(missing, "host")
		}
		if strings.TrimSpace(db.Service) == "" {
			missing = append(missing, "service")
		}
		if strings.TrimSpace(db.User) == "" {
			missing = append(missing, "user")
		}
		if len(missing) > 0 {
			return errors.ConfigError("missing database connection info").
				WithContext("field", "database").
				WithContext("missing", strings.Join(missing, ",")).
				Build()
		}
		if db.Port < 1 || db.Port > 65535 {
			return invalid("database.port", db.Port, "must be between 1 and 65535")
		}
	}
	if err := positiveDuration("database.conn_max_lifetime", db.ConnMaxLifetime); err != nil {
		return err
	}
	return positiveDuration("database.ping_timeout", db.PingTimeout)
}

func (cv *configurationValidator) validateHTTP() error {
	h := cv.config.HTTP
	if !strings.Contains(h.ListenAddress, ":") {
		return invalid("http.listen_address", h.ListenAddress, "must be host:port or :port")
	}
	for field, path := range map[string]string{"http.metrics_path": h.MetricsPath, "http.health_path": h.HealthPath} {
		if !strings.HasPrefix(path, "/") {
			return invalid(field, path, "must start with /")
		}
	}
	if h.MetricsPath == h.HealthPath {
		return invalid("http.health_path", h.HealthPath, "must differ from http.metrics_path")
	}
	return nil
}

func positiveDuration(field, raw string) error {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, fmt.Sprintf("%s is not a valid duration", field)).
			Fatal().
			UserAction().
			WithContext("field", field).
			WithContext("value", raw).
			Build()
	}
	if d <= 0 {
		return invalid(field, raw, "must be positive")
	}
	return nil
}

func invalid(field string, value any, reason string) error {
	return errors.ConfigError(fmt.Sprintf("%s %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
