package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/oraexporter/internal/cache"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveCollectionDuration(150 * time.Millisecond)
	pr.ObserveSourceDuration("sessions", 20*time.Millisecond)
	pr.IncSourceError("tablespaces")
	pr.IncSourceError("tablespaces")
	pr.SetSourceUp("sessions", true)
	pr.SetSourceUp("tablespaces", false)
	pr.IncCyclesSkipped()
	pr.SetLastCollection(time.Unix(1700000000, 0))

	require.Equal(t, 2.0, testutil.ToFloat64(pr.sourceErrors.WithLabelValues("tablespaces")))
	require.Equal(t, 1.0, testutil.ToFloat64(pr.sourceUp.WithLabelValues("sessions")))
	require.Equal(t, 0.0, testutil.ToFloat64(pr.sourceUp.WithLabelValues("tablespaces")))
	require.Equal(t, 1.0, testutil.ToFloat64(pr.cyclesSkipped))
	require.Equal(t, 1700000000.0, testutil.ToFloat64(pr.lastCollection))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 6)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	require.NotPanics(t, func() {
		pr.ObserveCollectionDuration(time.Second)
		pr.IncSourceError("x")
		pr.SetSourceUp("x", true)
		pr.IncCyclesSkipped()
	})
}

func TestHTTPHandlerServesExporter(t *testing.T) {
	reg := NewRegistry()
	c := cache.New()
	c.Set("oracle.active.sessions", 7)
	_, err := Register(reg, catalog(), c)
	require.NoError(t, err)
	NewPrometheusRecorder(reg)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "oracle_active_sessions 7")
	require.Contains(t, body, "oraexporter_cycles_skipped_total 0")
	require.Contains(t, body, "go_goroutines")
}
