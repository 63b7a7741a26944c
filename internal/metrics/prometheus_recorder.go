package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every self-metric.
const Namespace = "oraexporter"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	cycleDuration  prom.Histogram
	sourceDuration *prom.HistogramVec
	sourceErrors   *prom.CounterVec
	sourceUp       *prom.GaugeVec
	cyclesSkipped  prom.Counter
	lastCollection prom.Gauge
}

// NewPrometheusRecorder constructs the self-metrics and registers them with reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		cycleDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "collection_duration_seconds",
			Help:      "Duration of complete collection cycles",
			Buckets:   prom.DefBuckets,
		}),
		sourceDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "source_duration_seconds",
			Help:      "Duration of individual metric source queries",
			Buckets:   prom.DefBuckets,
		}, []string{"source"}),
		sourceErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "source_errors_total",
			Help:      "Failed collections per metric source",
		}, []string{"source"}),
		sourceUp: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: Namespace,
			Name:      "source_up",
			Help:      "Whether the last collection of a metric source succeeded (1) or failed (0)",
		}, []string{"source"}),
		cyclesSkipped: prom.NewCounter(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "cycles_skipped_total",
			Help:      "Collection ticks skipped because the previous cycle was still running",
		}),
		lastCollection: prom.NewGauge(prom.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_collection_timestamp_seconds",
			Help:      "Unix time at which the last collection cycle finished",
		}),
	}
	reg.MustRegister(pr.cycleDuration, pr.sourceDuration, pr.sourceErrors, pr.sourceUp, pr.cyclesSkipped, pr.lastCollection)
	return pr
}

func (p *PrometheusRecorder) ObserveCollectionDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.cycleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveSourceDuration(source string, d time.Duration) {
	if p == nil {
		return
	}
	p.sourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSourceError(source string) {
	if p == nil {
		return
	}
	p.sourceErrors.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) SetSourceUp(source string, up bool) {
	if p == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	p.sourceUp.WithLabelValues(source).Set(v)
}

func (p *PrometheusRecorder) IncCyclesSkipped() {
	if p == nil {
		return
	}
	p.cyclesSkipped.Inc()
}

func (p *PrometheusRecorder) SetLastCollection(t time.Time) {
	if p == nil {
		return
	}
	p.lastCollection.Set(float64(t.UnixNano()) / 1e9)
}
