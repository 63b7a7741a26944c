package database

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/oraexporter/internal/config"
	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
)

func poolConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		MaxOpenConns:    3,
		MaxIdleConns:    1,
		ConnMaxLifetime: "10m",
		PingTimeout:     "1s",
	}
}

func TestDataSourceName(t *testing.T) {
	t.Run("raw dsn wins", func(t *testing.T) {
		cfg := config.DatabaseConfig{DSN: "oracle://a:b@db:1522/X", Host: "ignored"}
		require.Equal(t, "oracle://a:b@db:1522/X", DataSourceName(cfg))
	})

	t.Run("built from fields", func(t *testing.T) {
		cfg := config.DatabaseConfig{Host: "db.example.com", Port: 1521, Service: "ORCLPDB1", User: "monitor", Password: "s3cret"}
		dsn := DataSourceName(cfg)
		require.True(t, strings.HasPrefix(dsn, "oracle://"), dsn)
		require.Contains(t, dsn, "monitor:s3cret@db.example.com:1521")
		require.Contains(t, dsn, "/ORCLPDB1")
	})
}

func TestRedacted(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"url with password", "oracle://monitor:s3cret@db:1521/ORCL", "oracle://monitor:xxxxx@db:1521/ORCL"},
		{"url without userinfo", "oracle://db:1521/ORCL", "oracle://db:1521/ORCL"},
		{"url with bad escape", "oracle://scott:ti%ger@db:1521/ORCL", "<redacted>"},
		{"password option", "oracle://scott:tiger@db:1521/ORCL?WALLET%20PASSWORD=hunter2", "oracle://scott:xxxxx@db:1521/ORCL?WALLET+PASSWORD=xxxxx"},
		{"easy connect", "scott/tiger@db:1521/ORCL", "scott/xxxxx@db:1521/ORCL"},
		{"easy connect with at in password", "scott/ti@ger@db:1521/ORCL", "scott/xxxxx@db:1521/ORCL"},
		{"other scheme", "file:/tmp/x.sqlite?_pragma=key(secret)", "<redacted>"},
		{"postgres url", "postgres://u:secret@db/x", "<redacted>"},
		{"opaque", "tiger", "<redacted>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Redacted(tt.dsn)
			require.Equal(t, tt.want, got)
			require.NotContains(t, got, "tiger")
			require.NotContains(t, got, "s3cret")
			require.NotContains(t, got, "secret")
			require.NotContains(t, got, "hunter2")
		})
	}
}

func TestOpenDriver_DoesNotLogPassword(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	dsn := "file:" + filepath.Join(t.TempDir(), "missing", "db.sqlite") + "?mode=ro"

	db, err := OpenDriver(context.Background(), "sqlite", dsn, poolConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.Contains(t, buf.String(), "Database not reachable")
	require.Contains(t, buf.String(), "dsn=<redacted>")
	require.NotContains(t, buf.String(), dsn)
}

func TestOpenDriver_AppliesPool(t *testing.T) {
	db, err := OpenDriver(context.Background(), "sqlite", ":memory:", poolConfig(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.Equal(t, 3, db.Stats().MaxOpenConnections)
	require.NoError(t, Ping(context.Background(), db, 0))
}

func TestOpenDriver_UnreachableIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	dsn := "file:" + filepath.Join(t.TempDir(), "missing", "db.sqlite") + "?mode=ro"

	db, err := OpenDriver(context.Background(), "sqlite", dsn, poolConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.Contains(t, buf.String(), "Database not reachable")

	err = Ping(context.Background(), db, 0)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryDatabase))
}

func TestOpenDriver_UnknownDriver(t *testing.T) {
	_, err := OpenDriver(context.Background(), "nope", "", poolConfig(), nil)
	require.True(t, errors.HasCategory(err, errors.CategoryDatabase))
}
