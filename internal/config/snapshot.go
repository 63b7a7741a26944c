package config

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// RestartSnapshot hashes the fields that can only take effect on restart: the
// database connection and the HTTP listener. Reloads that change this hash are
// reported but not applied. Interval and logging changes are applied live.
func (c *Config) RestartSnapshot() string {
	if c == nil {
		return ""
	}
	h := sha256.New()
	w := func(parts ...string) { h.Write([]byte(strings.Join(parts, "="))); h.Write([]byte{0}) }

	db := c.Database
	w("database.dsn", db.DSN)
	w("database.host", db.Host)
	w("database.port", strconv.Itoa(db.Port))
	w("database.service", db.Service)
	w("database.user", db.User)
	w("database.password", db.Password)
	keys := make([]string, 0, len(db.Options))
	for k := range db.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w("database.options."+k, db.Options[k])
	}
	w("database.max_open_conns", strconv.Itoa(db.MaxOpenConns))
	w("database.max_idle_conns", strconv.Itoa(db.MaxIdleConns))
	w("database.conn_max_lifetime", db.ConnMaxLifetime)
	w("collection.query_timeout", c.Collection.QueryTimeout)
	w("collection.max_concurrency", strconv.Itoa(c.Collection.MaxConcurrency))

	w("http.listen_address", c.HTTP.ListenAddress)
	w("http.metrics_path", c.HTTP.MetricsPath)
	w("http.health_path", c.HTTP.HealthPath)
	return hex.EncodeToString(h.Sum(nil))
}
