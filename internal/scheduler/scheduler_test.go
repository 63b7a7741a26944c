package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/oraexporter/internal/collector"
	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
)

type runnerFunc func(ctx context.Context) collector.CycleReport

func (f runnerFunc) RunCycle(ctx context.Context) collector.CycleReport { return f(ctx) }

func countingRunner(calls *atomic.Int32) runnerFunc {
	return func(context.Context) collector.CycleReport {
		calls.Add(1)
		return collector.CycleReport{ID: "cycle"}
	}
}

func startScheduler(t *testing.T, r Runner, interval time.Duration) *Scheduler {
	t.Helper()
	s, err := New(r, interval)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

// startFakeScheduler starts s on a fake clock. The immediate first run still happens;
// later ticks only fire when the test advances the clock.
func startFakeScheduler(t *testing.T, r Runner, interval time.Duration) (*Scheduler, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	s, err := New(r, interval, WithClock(fc))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s, fc
}

// fireNext waits for the next run timer to be armed and moves the clock past it.
func fireNext(t *testing.T, fc *clockwork.FakeClock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(d)
}

func TestNew_RejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -5 * time.Second} {
		_, err := New(runnerFunc(nil), interval)
		require.Error(t, err)
		require.True(t, errors.HasCategory(err, errors.CategoryConfig), "interval %s", interval)
	}
}

func TestStart_RunsImmediately(t *testing.T) {
	var calls atomic.Int32
	s := startScheduler(t, countingRunner(&calls), time.Hour)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := s.LastReport()
		return ok
	}, time.Second, 5*time.Millisecond)

	next, err := s.NextRun()
	require.NoError(t, err)
	require.True(t, next.After(time.Now()))
}

func TestStart_Twice(t *testing.T) {
	var calls atomic.Int32
	s := startScheduler(t, countingRunner(&calls), time.Hour)
	err := s.Start(context.Background())
	require.True(t, errors.HasCategory(err, errors.CategoryScheduler))
}

func TestTick_RepeatsOnInterval(t *testing.T) {
	var calls atomic.Int32
	_, fc := startFakeScheduler(t, countingRunner(&calls), 30*time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	for want := int32(2); want <= 3; want++ {
		fireNext(t, fc, 30*time.Second)
		require.Eventually(t, func() bool { return calls.Load() == want }, 2*time.Second, 5*time.Millisecond)
	}
}

func TestTick_SkipsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	s, fc := startFakeScheduler(t, runnerFunc(func(context.Context) collector.CycleReport {
		if calls.Add(1) == 1 {
			<-release
		}
		return collector.CycleReport{}
	}), 30*time.Second)

	require.Eventually(t, func() bool { return s.State() == StateRunning }, 2*time.Second, 2*time.Millisecond)
	for want := int64(1); want <= 2; want++ {
		fireNext(t, fc, 30*time.Second)
		require.Eventually(t, func() bool { return s.Skipped() == want }, 2*time.Second, 5*time.Millisecond)
	}
	require.Equal(t, int32(1), calls.Load())

	close(release)
	require.Eventually(t, func() bool { return s.State() == StateIdle }, 2*time.Second, 2*time.Millisecond)
	fireNext(t, fc, 30*time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestTick_PanicDoesNotStopLoop(t *testing.T) {
	var calls atomic.Int32
	s, fc := startFakeScheduler(t, runnerFunc(func(context.Context) collector.CycleReport {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return collector.CycleReport{ID: "ok"}
	}), 30*time.Second)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	fireNext(t, fc, 30*time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		r, ok := s.LastReport()
		return ok && r.ID == "ok"
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return s.State() == StateIdle }, time.Second, 2*time.Millisecond)
}

func TestReschedule(t *testing.T) {
	var calls atomic.Int32
	s, fc := startFakeScheduler(t, countingRunner(&calls), time.Hour)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Reschedule(time.Minute))
	require.Equal(t, time.Minute, s.Interval())
	next, err := s.NextRun()
	require.NoError(t, err)
	require.WithinDuration(t, fc.Now().Add(time.Minute), next, 0)

	fireNext(t, fc, time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)

	err = s.Reschedule(0)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
	require.Equal(t, time.Minute, s.Interval())
}

func TestReschedule_BeforeStart(t *testing.T) {
	s, err := New(runnerFunc(nil), time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Reschedule(time.Second))
	require.Equal(t, time.Second, s.Interval())
}

func TestStop_CancelsInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	var canceled atomic.Bool
	s, err := New(runnerFunc(func(ctx context.Context) collector.CycleReport {
		close(started)
		<-ctx.Done()
		canceled.Store(true)
		return collector.CycleReport{}
	}), time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	<-started
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.Eventually(t, canceled.Load, time.Second, 5*time.Millisecond)
}
