// Package scheduler drives periodic collection cycles on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/oraexporter/internal/collector"
	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
	"git.home.luguber.info/inful/oraexporter/internal/logfields"
	"git.home.luguber.info/inful/oraexporter/internal/metrics"
)

const jobName = "collect"

// State is the scheduler's cycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Runner executes one collection cycle.
type Runner interface {
	RunCycle(ctx context.Context) collector.CycleReport
}

// Scheduler wraps a gocron scheduler running a single collection job. Ticks that fire
// while a cycle is still running are skipped.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    Runner
	recorder  metrics.Recorder
	logger    *slog.Logger
	clock     clockwork.Clock

	mu       sync.Mutex // guards interval, jobID, ctx, cancel
	interval time.Duration
	jobID    uuid.UUID
	ctx      context.Context
	cancel   context.CancelFunc

	cycle   sync.Mutex // held for the duration of a cycle
	state   atomic.Int32
	skipped atomic.Int64
	last    atomic.Pointer[collector.CycleReport]
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(c clockwork.Clock) Option { return func(s *Scheduler) { s.clock = c } }

// New creates a scheduler that runs runner every interval once started.
func New(runner Runner, interval time.Duration, opts ...Option) (*Scheduler, error) {
	if err := validateInterval(interval); err != nil {
		return nil, err
	}
	s := &Scheduler{
		runner:   runner,
		interval: interval,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}

	gs, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLogger(s.logger),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryScheduler, "failed to create gocron scheduler").Fatal().Build()
	}
	s.scheduler = gs
	return s, nil
}

func validateInterval(interval time.Duration) error {
	if interval <= 0 {
		return errors.ConfigError("collection interval must be positive").
			WithContext("interval", interval.String()).
			Build()
	}
	return nil
}

// Start schedules the collection job with an immediate first run and starts the timer.
// Cycles run with a context derived from ctx that is canceled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.SchedulerError("scheduler already started").Build()
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.tick),
		gocron.WithName(jobName),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		s.cancel()
		return errors.WrapError(err, errors.CategoryScheduler, "failed to create collection job").Fatal().Build()
	}
	s.jobID = job.ID()

	s.logger.Info("Starting scheduler", logfields.Interval(s.interval), logfields.JobID(s.jobID.String()))
	s.scheduler.Start()
	return nil
}

// Stop cancels in-flight cycles and shuts the timer down.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")
	done := make(chan error, 1)
	go func() { done <- s.scheduler.Shutdown() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("scheduler shutdown: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

// Reschedule changes the collection interval of a running job in place.
func (s *Scheduler) Reschedule(interval time.Duration) error {
	if err := validateInterval(interval); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if interval == s.interval {
		return nil
	}
	s.interval = interval
	if s.cancel == nil {
		return nil
	}

	if _, err := s.scheduler.Update(s.jobID,
		gocron.DurationJob(interval),
		gocron.NewTask(s.tick),
		gocron.WithName(jobName),
	); err != nil {
		return errors.WrapError(err, errors.CategoryScheduler, "failed to reschedule collection job").
			WithContext("interval", interval.String()).
			Build()
	}
	s.logger.Info("Collection interval updated", logfields.Interval(interval))
	return nil
}

// Interval returns the current collection interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// State reports whether a cycle is currently running.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Skipped returns the number of ticks skipped because a cycle was still running.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

// LastReport returns the report of the most recently completed cycle.
func (s *Scheduler) LastReport() (collector.CycleReport, bool) {
	r := s.last.Load()
	if r == nil {
		return collector.CycleReport{}, false
	}
	return *r, true
}

// NextRun returns when the collection job fires next.
func (s *Scheduler) NextRun() (time.Time, error) {
	s.mu.Lock()
	id := s.jobID
	s.mu.Unlock()
	for _, j := range s.scheduler.Jobs() {
		if j.ID() == id {
			return j.NextRun()
		}
	}
	return time.Time{}, errors.SchedulerError("collection job not scheduled").Build()
}

func (s *Scheduler) cycleContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// tick is called by gocron on every interval.
func (s *Scheduler) tick() {
	if !s.cycle.TryLock() {
		s.skipped.Add(1)
		s.recorder.IncCyclesSkipped()
		s.logger.Warn("Previous collection cycle still running, skipping tick",
			logfields.Interval(s.Interval()))
		return
	}
	defer s.cycle.Unlock()

	s.state.Store(int32(StateRunning))
	defer s.state.Store(int32(StateIdle))
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Collection cycle panicked", slog.Any("panic", r))
		}
	}()

	ctx := s.cycleContext()
	if ctx.Err() != nil {
		return
	}
	report := s.runner.RunCycle(ctx)
	s.last.Store(&report)
}
