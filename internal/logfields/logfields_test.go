package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"CycleID", KeyCycleID, "c1", CycleID("c1")},
		{"Source", KeySource, "oracle.active.sessions", Source("oracle.active.sessions")},
		{"Metric", KeyMetric, "oracle.tablespace.used.percent", Metric("oracle.tablespace.used.percent")},
		{"Label", KeyLabel, "SYSTEM", Label("SYSTEM")},
		{"JobID", KeyJobID, "j1", JobID("j1")},
		{"Path", KeyPath, "/etc/oraexporter.yaml", Path("/etc/oraexporter.yaml")},
		{"Addr", KeyAddr, ":9161", Addr(":9161")},
		{"Status", KeyStatus, "running", Status("running")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if v := Value(82.5); v.Key != KeyValue || v.Value.Float64() != 82.5 {
		t.Fatalf("Value mismatch: %v", v)
	}
	if v := Failed(2); v.Key != KeyFailed || v.Value.Int64() != 2 {
		t.Fatalf("Failed mismatch: %v", v)
	}
	if v := Interval(30 * time.Second); v.Key != KeyInterval || v.Value.Duration() != 30*time.Second {
		t.Fatalf("Interval mismatch: %v", v)
	}
	if v := Elapsed(1500 * time.Microsecond); v.Key != KeyDurationMS || v.Value.Float64() != 1.5 {
		t.Fatalf("Elapsed mismatch: %v", v)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	if attr := Error(nil); attr.Key != KeyError || attr.Value.String() != "" {
		t.Fatalf("unexpected nil error attr: %v", attr)
	}
	if attr := Error(errors.New("boom")); attr.Value.String() != "boom" {
		t.Fatalf("unexpected error attr: %v", attr)
	}
}
