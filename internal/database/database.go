// Package database opens the connection pool to the monitored Oracle instance.
package database

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"strings"
	"time"

	go_ora "github.com/sijms/go-ora/v2"

	"git.home.luguber.info/inful/oraexporter/internal/config"
	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
	"git.home.luguber.info/inful/oraexporter/internal/logfields"
)

// DriverName is the database/sql driver registered by go-ora.
const DriverName = "oracle"

// DataSourceName returns the raw DSN when configured, otherwise a go-ora URL built from
// the individual connection fields.
func DataSourceName(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Service, cfg.User, cfg.Password, cfg.Options)
}

const (
	maskedPassword = "xxxxx"
	redactedDSN    = "<redacted>"
)

// Redacted renders a DSN with its password masked, for logs. go-ora URLs keep their
// shape, easy-connect strings (user/password@host:port/service) keep the user and
// address. Anything else is replaced entirely.
func Redacted(dsn string) string {
	if !strings.Contains(dsn, "://") {
		return redactEasyConnect(dsn)
	}
	u, err := url.Parse(dsn)
	if err != nil || !strings.EqualFold(u.Scheme, "oracle") {
		return redactedDSN
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), maskedPassword)
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if strings.Contains(strings.ToUpper(k), "PASSWORD") {
				q.Set(k, maskedPassword)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func redactEasyConnect(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at <= 0 {
		return redactedDSN
	}
	user, _, ok := strings.Cut(dsn[:at], "/")
	if !ok || user == "" {
		return redactedDSN
	}
	return user + "/" + maskedPassword + dsn[at:]
}

// Open creates the Oracle connection pool described by cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	return OpenDriver(ctx, DriverName, DataSourceName(cfg), cfg, logger)
}

// OpenDriver opens dsn with driver and applies the pool settings from cfg. A failed
// initial ping is logged, not returned: the database may become reachable later, and
// each collection cycle reports its own failures.
func OpenDriver(ctx context.Context, driver, dsn string, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDatabase, "failed to open database").
			Fatal().
			WithContext("driver", driver).
			Build()
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := Ping(ctx, db, cfg.PingTimeoutDuration()); err != nil {
		logger.Warn("Database not reachable at startup, collection will keep retrying",
			slog.String("dsn", Redacted(dsn)),
			logfields.Error(err))
	} else {
		logger.Info("Connected to database", slog.String("dsn", Redacted(dsn)))
	}
	return db, nil
}

// Ping checks connectivity, bounded by timeout when positive.
func Ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryDatabase, "database ping failed").
			Warning().
			Retryable().
			Build()
	}
	return nil
}
