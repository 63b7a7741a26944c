package metrics

import (
	"fmt"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/oraexporter/internal/cache"
	"git.home.luguber.info/inful/oraexporter/internal/source"
)

// Snapshotter is the read side of the metric cache.
type Snapshotter interface {
	Snapshot() cache.Snapshot
}

// PromName converts a dotted metric name into a Prometheus metric name.
func PromName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

type exported struct {
	def  source.Definition
	desc *prom.Desc
}

// Exporter exposes cached metric values as Prometheus gauges.
type Exporter struct {
	metrics []exported
	cache   Snapshotter
}

// NewExporter builds an Exporter for defs reading from c.
func NewExporter(defs []source.Definition, c Snapshotter) (*Exporter, error) {
	if err := source.ValidateDefinitions(defs); err != nil {
		return nil, fmt.Errorf("invalid metric definitions: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("exporter requires a cache")
	}
	e := &Exporter{cache: c, metrics: make([]exported, 0, len(defs))}
	for _, d := range defs {
		e.metrics = append(e.metrics, exported{
			def:  d,
			desc: prom.NewDesc(PromName(d.Name), d.Description, d.Labels, nil),
		})
	}
	return e, nil
}

// Register creates an Exporter and registers it with reg.
func Register(reg prom.Registerer, defs []source.Definition, c Snapshotter) (*Exporter, error) {
	e, err := NewExporter(defs, c)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(e); err != nil {
		return nil, fmt.Errorf("register exporter: %w", err)
	}
	return e, nil
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prom.Desc) {
	for _, m := range e.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector. Scalars are always emitted; labeled metrics
// emit one series per label key present in the cache.
func (e *Exporter) Collect(ch chan<- prom.Metric) {
	snap := e.cache.Snapshot()
	for _, m := range e.metrics {
		if m.def.Kind() == source.KindScalar {
			ch <- prom.MustNewConstMetric(m.desc, prom.GaugeValue, snap.Get(m.def.Name))
			continue
		}
		entry, ok := snap[m.def.Name]
		if !ok || entry.Value.Kind != source.KindLabeled {
			continue
		}
		for key, v := range entry.Value.Labeled {
			metric, err := prom.NewConstMetric(m.desc, prom.GaugeValue, v, source.LabelValues(key)...)
			if err != nil {
				metric = prom.NewInvalidMetric(m.desc, err)
			}
			ch <- metric
		}
	}
}
