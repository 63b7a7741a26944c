package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/oraexporter/internal/cache"
	"git.home.luguber.info/inful/oraexporter/internal/source"
	ortest "git.home.luguber.info/inful/oraexporter/internal/testing"
)

type funcSource struct {
	name string
	fn   func(ctx context.Context) (source.Value, error)
}

func (f funcSource) Name() string { return f.name }
func (f funcSource) Collect(ctx context.Context) (source.Value, error) {
	return f.fn(ctx)
}

func scalarDef(name string, fn func(ctx context.Context) (source.Value, error)) source.Definition {
	return source.Definition{Name: name, Description: name, Source: funcSource{name: name, fn: fn}}
}

type countingRecorder struct {
	errors  atomic.Int32
	cycles  atomic.Int32
	sources atomic.Int32
}

func (r *countingRecorder) ObserveCollectionDuration(time.Duration)     { r.cycles.Add(1) }
func (r *countingRecorder) ObserveSourceDuration(string, time.Duration) { r.sources.Add(1) }
func (r *countingRecorder) IncSourceError(string)                       { r.errors.Add(1) }
func (r *countingRecorder) SetSourceUp(string, bool)                    {}
func (r *countingRecorder) IncCyclesSkipped()                           {}
func (r *countingRecorder) SetLastCollection(time.Time)                 {}

func TestRunCycle_FixtureValues(t *testing.T) {
	db := ortest.OpenFixture(t, 7)
	store := cache.New()
	c, err := New(db.Catalog(source.WithTimeout(time.Second)), store)
	require.NoError(t, err)

	report := c.RunCycle(context.Background())
	require.True(t, report.OK(), "%v", report.Failed())
	require.Len(t, report.Outcomes, 4)
	require.NotEmpty(t, report.ID)

	require.Equal(t, 7.0, store.Get(source.MetricActiveSessions))
	require.Equal(t, 123456.0, store.Get(source.MetricPhysicalReads))
	require.InDelta(t, 82.5, store.GetLabeled(source.MetricTablespaceUsed, "SYSTEM"), 1e-9)
	require.InDelta(t, 40.1, store.GetLabeled(source.MetricTablespaceUsed, "USERS"), 1e-9)
}

func TestRunCycle_FailureKeepsPreviousValue(t *testing.T) {
	db := ortest.OpenFixture(t, 3)
	store := cache.New()
	c, err := New(db.Catalog(), store)
	require.NoError(t, err)

	require.True(t, c.RunCycle(context.Background()).OK())

	db.BreakTablespaces()
	db.SetActiveSessions(5)
	report := c.RunCycle(context.Background())

	failed := report.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, source.MetricTablespaceUsed, failed[0].Metric)

	var ce *source.CollectionError
	require.ErrorAs(t, failed[0].Err, &ce)
	require.Equal(t, source.PhaseQuery, ce.Phase)

	require.Equal(t, 5.0, store.Get(source.MetricActiveSessions))
	require.InDelta(t, 82.5, store.GetLabeled(source.MetricTablespaceUsed, "SYSTEM"), 1e-9)
}

func TestRunCycle_PrunesDroppedTablespace(t *testing.T) {
	db := ortest.OpenFixture(t, 1)
	store := cache.New()
	c, err := New(db.Catalog(), store)
	require.NoError(t, err)

	c.RunCycle(context.Background())
	db.DropTablespace("USERS")
	c.RunCycle(context.Background())

	e, ok := store.Entry(source.MetricTablespaceUsed)
	require.True(t, ok)
	require.Len(t, e.Value.Labeled, 1)
	require.Contains(t, e.Value.Labeled, "SYSTEM")
}

func TestRunCycle_FirstFailureLeavesDefault(t *testing.T) {
	store := cache.New()
	c, err := New([]source.Definition{
		scalarDef("broken", func(context.Context) (source.Value, error) {
			return source.Value{}, errors.New("ORA-12541: TNS:no listener")
		}),
	}, store)
	require.NoError(t, err)

	report := c.RunCycle(context.Background())
	require.False(t, report.OK())
	require.Equal(t, 0.0, store.Get("broken"))
	_, ok := store.Entry("broken")
	require.False(t, ok)

	var ce *source.CollectionError
	require.ErrorAs(t, report.Outcomes[0].Err, &ce)
	require.Contains(t, ce.Error(), "ORA-12541")
}

func TestRunCycle_IsolatesFailures(t *testing.T) {
	store := cache.New()
	rec := &countingRecorder{}
	c, err := New([]source.Definition{
		scalarDef("a", func(context.Context) (source.Value, error) { return source.Scalar(1), nil }),
		scalarDef("b", func(context.Context) (source.Value, error) { return source.Value{}, errors.New("boom") }),
		scalarDef("c", func(context.Context) (source.Value, error) { return source.Scalar(3), nil }),
	}, store, WithRecorder(rec))
	require.NoError(t, err)

	report := c.RunCycle(context.Background())
	require.Len(t, report.Failed(), 1)
	require.Equal(t, 1.0, store.Get("a"))
	require.Equal(t, 3.0, store.Get("c"))
	require.Equal(t, int32(1), rec.errors.Load())
	require.Equal(t, int32(3), rec.sources.Load())
	require.Equal(t, int32(1), rec.cycles.Load())
}

func TestRunCycle_RecoversPanic(t *testing.T) {
	store := cache.New()
	c, err := New([]source.Definition{
		scalarDef("panics", func(context.Context) (source.Value, error) { panic("driver bug") }),
		scalarDef("ok", func(context.Context) (source.Value, error) { return source.Scalar(2), nil }),
	}, store)
	require.NoError(t, err)

	var report CycleReport
	require.NotPanics(t, func() { report = c.RunCycle(context.Background()) })

	var ce *source.CollectionError
	require.ErrorAs(t, report.Outcomes[0].Err, &ce)
	require.Equal(t, source.PhasePanic, ce.Phase)
	require.Contains(t, ce.Error(), "driver bug")
	require.Equal(t, 2.0, store.Get("ok"))
}

func TestRunCycle_RejectsKindMismatch(t *testing.T) {
	store := cache.New()
	c, err := New([]source.Definition{
		scalarDef("scalar", func(context.Context) (source.Value, error) {
			return source.Labeled(map[string]float64{"x": 1}), nil
		}),
	}, store)
	require.NoError(t, err)

	report := c.RunCycle(context.Background())
	var ce *source.CollectionError
	require.ErrorAs(t, report.Outcomes[0].Err, &ce)
	require.Equal(t, source.PhaseResult, ce.Phase)
	_, ok := store.Entry("scalar")
	require.False(t, ok)
}

func TestRunCycle_BoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	var defs []source.Definition
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		defs = append(defs, scalarDef(name, func(context.Context) (source.Value, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return source.Scalar(1), nil
		}))
	}

	c, err := New(defs, cache.New(), WithConcurrency(2))
	require.NoError(t, err)
	require.True(t, c.RunCycle(context.Background()).OK())
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunCycle_ReportTiming(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	c, err := New([]source.Definition{
		scalarDef("a", func(context.Context) (source.Value, error) { return source.Scalar(1), nil }),
	}, cache.New(), WithClock(clock))
	require.NoError(t, err)

	report := c.RunCycle(context.Background())
	require.Equal(t, start, report.StartedAt)
	require.Equal(t, time.Duration(0), report.Duration)
	require.Equal(t, "a", report.Outcomes[0].Source)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)

	def := scalarDef("a", nil)
	_, err = New([]source.Definition{def, def}, cache.New())
	require.Error(t, err)
}
