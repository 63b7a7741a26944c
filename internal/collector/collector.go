// Package collector runs one collection cycle over the metric catalog.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/oraexporter/internal/logfields"
	"git.home.luguber.info/inful/oraexporter/internal/metrics"
	"git.home.luguber.info/inful/oraexporter/internal/source"
)

// DefaultConcurrency bounds how many sources run at once when no limit is configured.
const DefaultConcurrency = 4

// Store is the write side of the metric cache.
type Store interface {
	Store(name string, v source.Value)
}

// Outcome is the result of one source within a cycle.
type Outcome struct {
	Metric   string
	Source   string
	Duration time.Duration
	Value    source.Value
	Err      error
}

// OK reports whether the source succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// CycleReport describes one completed collection cycle.
type CycleReport struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Outcomes  []Outcome // in definition order
}

// Failed returns the outcomes that did not succeed.
func (r CycleReport) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// OK reports whether every source succeeded.
func (r CycleReport) OK() bool { return len(r.Failed()) == 0 }

// Collector invokes every metric source and writes successful results to the cache.
type Collector struct {
	defs        []source.Definition
	store       Store
	clock       clockwork.Clock
	recorder    metrics.Recorder
	logger      *slog.Logger
	concurrency int
}

// Option configures a Collector.
type Option func(*Collector)

func WithClock(c clockwork.Clock) Option { return func(col *Collector) { col.clock = c } }

func WithRecorder(r metrics.Recorder) Option {
	return func(col *Collector) {
		if r != nil {
			col.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(col *Collector) {
		if l != nil {
			col.logger = l
		}
	}
}

// WithConcurrency bounds the number of sources collected in parallel.
func WithConcurrency(n int) Option {
	return func(col *Collector) {
		if n > 0 {
			col.concurrency = n
		}
	}
}

// New builds a Collector for defs writing into store.
func New(defs []source.Definition, store Store, opts ...Option) (*Collector, error) {
	if err := source.ValidateDefinitions(defs); err != nil {
		return nil, fmt.Errorf("invalid metric definitions: %w", err)
	}
	if store == nil {
		return nil, errors.New("collector requires a store")
	}
	c := &Collector{
		defs:        defs,
		store:       store,
		clock:       clockwork.NewRealClock(),
		recorder:    metrics.NoopRecorder{},
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Definitions returns the catalog the collector runs.
func (c *Collector) Definitions() []source.Definition { return c.defs }

// RunCycle collects every source once. Failed sources leave their cached value untouched;
// no failure aborts the cycle or the other sources.
func (c *Collector) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{
		ID:        uuid.NewString(),
		StartedAt: c.clock.Now(),
		Outcomes:  make([]Outcome, len(c.defs)),
	}
	log := c.logger.With(logfields.CycleID(report.ID))
	log.Debug("Collection cycle started", slog.Int("sources", len(c.defs)))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, def := range c.defs {
		g.Go(func() error {
			report.Outcomes[i] = c.collect(ctx, log, def)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = c.clock.Since(report.StartedAt)
	c.recorder.ObserveCollectionDuration(report.Duration)
	c.recorder.SetLastCollection(c.clock.Now())

	failed := len(report.Failed())
	attrs := []any{logfields.Elapsed(report.Duration), logfields.Failed(failed)}
	if failed > 0 {
		log.Warn("Collection cycle completed with failures", attrs...)
	} else {
		log.Debug("Collection cycle completed", attrs...)
	}
	return report
}

func (c *Collector) collect(ctx context.Context, log *slog.Logger, def source.Definition) Outcome {
	name := def.Source.Name()
	start := c.clock.Now()
	v, err := invoke(ctx, def)
	out := Outcome{Metric: def.Name, Source: name, Duration: c.clock.Since(start), Value: v, Err: err}

	c.recorder.ObserveSourceDuration(def.Name, out.Duration)
	if err != nil {
		c.recorder.IncSourceError(def.Name)
		c.recorder.SetSourceUp(def.Name, false)
		log.Warn("Metric collection failed",
			logfields.Metric(def.Name),
			logfields.Source(name),
			logfields.Elapsed(out.Duration),
			logfields.Error(err))
		return out
	}

	c.store.Store(def.Name, v)
	c.recorder.SetSourceUp(def.Name, true)
	log.Debug("Metric collected",
		logfields.Metric(def.Name),
		logfields.Source(name),
		logfields.Elapsed(out.Duration))
	return out
}

// invoke runs the source, converting panics, foreign errors, and kind mismatches into
// CollectionErrors.
func invoke(ctx context.Context, def source.Definition) (v source.Value, err error) {
	name := def.Source.Name()
	defer func() {
		if r := recover(); r != nil {
			v = source.Value{}
			err = source.NewCollectionError(name, source.PhasePanic, fmt.Errorf("panic: %v", r))
		}
	}()

	v, err = def.Source.Collect(ctx)
	if err != nil {
		var ce *source.CollectionError
		if !errors.As(err, &ce) {
			err = source.NewCollectionError(name, source.PhaseQuery, err)
		}
		return source.Value{}, err
	}
	if v.Kind != def.Kind() {
		return source.Value{}, source.NewCollectionError(name, source.PhaseResult,
			fmt.Errorf("expected %s value for %s, got %s", def.Kind(), def.Name, v.Kind))
	}
	return v, nil
}
