// Package metrics bridges the metric cache to Prometheus and records the exporter's
// own health metrics.
//
// Two collectors live here. Exporter is a prometheus.Collector over the fixed metric
// catalog: every scrape takes one lock-free snapshot of the cache and emits constant
// gauges from it, so a scrape never touches the database. Recorder is the hook the
// collection pipeline uses for self-metrics; NoopRecorder is the default and
// PrometheusRecorder is activated by the daemon.
//
// Components receive a Recorder through dependency injection:
//
//	c := collector.New(defs, store, collector.WithRecorder(metrics.NewPrometheusRecorder(reg)))
package metrics
