package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCycleID    = "cycle_id"
	KeySource     = "source"
	KeyMetric     = "metric"
	KeyLabel      = "label"
	KeyValue      = "value"
	KeyDurationMS = "duration_ms"
	KeyInterval   = "interval"
	KeyJobID      = "job_id"
	KeyPath       = "path"
	KeyAddr       = "addr"
	KeyStatus     = "status"
	KeyFailed     = "failed"
	KeyMethod     = "method"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

func CycleID(id string) slog.Attr        { return slog.String(KeyCycleID, id) }
func Source(name string) slog.Attr       { return slog.String(KeySource, name) }
func Metric(name string) slog.Attr       { return slog.String(KeyMetric, name) }
func Label(l string) slog.Attr           { return slog.String(KeyLabel, l) }
func Value(v float64) slog.Attr          { return slog.Float64(KeyValue, v) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Interval(d time.Duration) slog.Attr { return slog.Duration(KeyInterval, d) }
func JobID(id string) slog.Attr          { return slog.String(KeyJobID, id) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Addr(a string) slog.Attr            { return slog.String(KeyAddr, a) }
func Status(s string) slog.Attr          { return slog.String(KeyStatus, s) }
func Method(m string) slog.Attr          { return slog.String(KeyMethod, m) }
func RemoteAddr(a string) slog.Attr      { return slog.String(KeyRemoteAddr, a) }
func Failed(n int) slog.Attr             { return slog.Int(KeyFailed, n) }

// Elapsed renders d as fractional milliseconds under KeyDurationMS.
func Elapsed(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
