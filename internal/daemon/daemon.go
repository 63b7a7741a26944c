// Package daemon wires the exporter together: database pool, metric cache, collector,
// scheduler, Prometheus registry, HTTP endpoints and configuration reloads.
package daemon

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/oraexporter/internal/cache"
	"git.home.luguber.info/inful/oraexporter/internal/collector"
	"git.home.luguber.info/inful/oraexporter/internal/config"
	"git.home.luguber.info/inful/oraexporter/internal/database"
	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
	"git.home.luguber.info/inful/oraexporter/internal/logfields"
	"git.home.luguber.info/inful/oraexporter/internal/metrics"
	"git.home.luguber.info/inful/oraexporter/internal/scheduler"
	"git.home.luguber.info/inful/oraexporter/internal/source"
	"git.home.luguber.info/inful/oraexporter/internal/version"
)

// Status represents the current state of the daemon
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Daemon represents the exporter service
type Daemon struct {
	config         *config.Config
	configFilePath string
	restartSnap    string       // restart-only settings in effect since startup
	status         atomic.Value // Status
	startTime      time.Time
	mu             sync.RWMutex

	db        *sql.DB
	ownsDB    bool
	defs      []source.Definition
	cache     *cache.MetricCache
	collector *collector.Collector
	scheduler *scheduler.Scheduler
	registry  *prom.Registry

	httpServer    *HTTPServer
	configWatcher *ConfigWatcher

	levelVar    *slog.LevelVar
	pinnedLevel bool
	logger      *slog.Logger
	clock       clockwork.Clock
}

type options struct {
	db             *sql.DB
	defs           []source.Definition
	configPath     string
	levelVar       *slog.LevelVar
	pinnedLevel    bool
	logger         *slog.Logger
	clock          clockwork.Clock
	reloadDebounce time.Duration
}

// Option configures a Daemon.
type Option func(*options)

// WithDB uses an existing handle instead of opening one from the configuration.
// The daemon does not close it.
func WithDB(db *sql.DB) Option { return func(o *options) { o.db = db } }

// WithDefinitions replaces the built-in Oracle catalog.
func WithDefinitions(defs []source.Definition) Option { return func(o *options) { o.defs = defs } }

// WithConfigFile enables reloading from path when the file changes.
func WithConfigFile(path string) Option { return func(o *options) { o.configPath = path } }

// WithLevelVar lets configuration reloads adjust the log level.
func WithLevelVar(lv *slog.LevelVar) Option { return func(o *options) { o.levelVar = lv } }

// WithPinnedLogLevel keeps the current log level across reloads, as --verbose requires.
func WithPinnedLogLevel(pinned bool) Option { return func(o *options) { o.pinnedLevel = pinned } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func WithClock(c clockwork.Clock) Option { return func(o *options) { o.clock = c } }

// WithReloadDebounce sets how long the config watcher waits for writes to settle.
func WithReloadDebounce(d time.Duration) Option { return func(o *options) { o.reloadDebounce = d } }

// New creates a daemon for cfg. The database connection is opened here; an unreachable
// database is logged and does not fail construction.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.InternalError("configuration is required").Build()
	}
	o := options{logger: slog.Default(), clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Daemon{
		config:         cfg,
		configFilePath: o.configPath,
		restartSnap:    cfg.RestartSnapshot(),
		levelVar:       o.levelVar,
		pinnedLevel:    o.pinnedLevel,
		logger:         o.logger,
		clock:          o.clock,
		db:             o.db,
	}
	d.status.Store(StatusStopped)

	if d.db == nil {
		db, err := database.Open(ctx, cfg.Database, d.logger)
		if err != nil {
			return nil, err
		}
		d.db, d.ownsDB = db, true
	}

	d.defs = o.defs
	if d.defs == nil {
		d.defs = source.Catalog(d.db, source.OracleQueries,
			source.WithTimeout(cfg.Collection.QueryTimeoutDuration()))
	}

	if err := d.buildPipeline(cfg); err != nil {
		d.closeDB()
		return nil, err
	}

	d.httpServer = NewHTTPServer(cfg.HTTP, d)

	if d.configFilePath != "" {
		w, err := NewConfigWatcher(d.configFilePath, d)
		if err != nil {
			d.closeDB()
			return nil, err
		}
		if o.reloadDebounce > 0 {
			w.debounceTime = o.reloadDebounce
		}
		d.configWatcher = w
	}
	return d, nil
}

func (d *Daemon) buildPipeline(cfg *config.Config) error {
	d.cache = cache.New(cache.WithClock(d.clock))
	d.registry = metrics.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(d.registry)
	if _, err := metrics.Register(d.registry, d.defs, d.cache); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to register metrics").Fatal().Build()
	}
	d.registry.MustRegister(prom.NewGaugeFunc(prom.GaugeOpts{
		Namespace:   metrics.Namespace,
		Name:        "build_info",
		Help:        "Build information of the running exporter",
		ConstLabels: prom.Labels{"version": version.Version, "commit": version.GitCommit},
	}, func() float64 { return 1 }))

	col, err := collector.New(d.defs, d.cache,
		collector.WithClock(d.clock),
		collector.WithRecorder(recorder),
		collector.WithLogger(d.logger),
		collector.WithConcurrency(cfg.Collection.MaxConcurrency))
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to create collector").Fatal().Build()
	}
	d.collector = col

	sched, err := scheduler.New(col, cfg.Collection.IntervalDuration(),
		scheduler.WithRecorder(recorder),
		scheduler.WithLogger(d.logger))
	if err != nil {
		return err
	}
	d.scheduler = sched
	return nil
}

// Start brings up the HTTP endpoints, the collection schedule and the config watcher.
// It returns once everything is running.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.GetStatus() != StatusStopped {
		return errors.RuntimeError(fmt.Sprintf("daemon is not in stopped state: %s", d.GetStatus())).Build()
	}

	d.status.Store(StatusStarting)
	d.startTime = d.clock.Now()
	d.logger.Info("Starting oraexporter", slog.String("version", version.Version))

	if err := d.httpServer.Start(ctx); err != nil {
		d.status.Store(StatusError)
		return err
	}

	if err := d.scheduler.Start(ctx); err != nil {
		d.status.Store(StatusError)
		_ = d.httpServer.Stop(ctx)
		return err
	}

	if d.configWatcher != nil {
		if err := d.configWatcher.Start(ctx); err != nil {
			d.logger.Error("Failed to start config watcher", logfields.Error(err))
		}
	}

	d.status.Store(StatusRunning)
	d.logger.Info("oraexporter started",
		logfields.Addr(d.httpServer.Addr()),
		logfields.Interval(d.scheduler.Interval()),
		slog.Int("metrics", len(d.defs)))
	return nil
}

// Run starts the daemon and blocks until ctx is canceled, then stops it.
func (d *Daemon) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.logger.Info("Shutdown signal received, stopping oraexporter")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return d.Stop(stopCtx)
}

// Stop gracefully shuts down the daemon
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	currentStatus := d.GetStatus()
	if currentStatus == StatusStopped || currentStatus == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)
	d.logger.Info("Stopping oraexporter")

	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(ctx); err != nil {
			d.logger.Error("Failed to stop config watcher", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(ctx); err != nil {
		d.logger.Error("Failed to stop scheduler", logfields.Error(err))
	}
	if err := d.httpServer.Stop(ctx); err != nil {
		d.logger.Error("Failed to stop HTTP server", logfields.Error(err))
	}
	d.closeDB()

	d.status.Store(StatusStopped)
	d.logger.Info("oraexporter stopped", slog.Duration("uptime", d.clock.Since(d.startTime)))
	return nil
}

func (d *Daemon) closeDB() {
	if d.ownsDB && d.db != nil {
		if err := d.db.Close(); err != nil {
			d.logger.Warn("Failed to close database", logfields.Error(err))
		}
	}
}

// GetStatus returns the current daemon status
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// GetStartTime returns the daemon start time
func (d *Daemon) GetStartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// HTTPAddr returns the address the HTTP server is bound to.
func (d *Daemon) HTTPAddr() string { return d.httpServer.Addr() }

// Cache exposes the metric cache for read access.
func (d *Daemon) Cache() *cache.MetricCache { return d.cache }

// Scheduler exposes the collection scheduler.
func (d *Daemon) Scheduler() *scheduler.Scheduler { return d.scheduler }

// ReloadConfig applies the live-reloadable parts of cfg: the collection interval and the
// log level. Other changes are logged as requiring a restart.
func (d *Daemon) ReloadConfig(cfg *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.restartSnap != cfg.RestartSnapshot() {
		d.logger.Warn("Database, collection pool or HTTP settings changed; restart required for them to take effect")
	}
	if err := d.scheduler.Reschedule(cfg.Collection.IntervalDuration()); err != nil {
		return err
	}
	if d.levelVar != nil && !d.pinnedLevel {
		d.levelVar.Set(cfg.Logging.Level.SlogLevel())
	}
	d.config = cfg
	d.logger.Info("Configuration applied",
		logfields.Interval(cfg.Collection.IntervalDuration()),
		slog.String("level", string(cfg.Logging.Level)))
	return nil
}
