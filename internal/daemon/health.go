package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"git.home.luguber.info/inful/oraexporter/internal/database"
	"git.home.luguber.info/inful/oraexporter/internal/scheduler"
	"git.home.luguber.info/inful/oraexporter/internal/version"
)

// staleFactor is how many intervals may pass without a completed cycle before the
// exporter is reported unhealthy.
const staleFactor = 3

// HealthStatus represents the overall health of the daemon
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// rank orders statuses so the worst check wins.
func (s HealthStatus) rank() int {
	switch s {
	case HealthStatusHealthy:
		return 0
	case HealthStatusDegraded:
		return 1
	default:
		return 2
	}
}

// HealthCheck represents a single health check
type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
}

// HTTPStatus maps the overall health to a response code. Degraded still answers 200.
func (r *HealthResponse) HTTPStatus() int {
	if r.Status == HealthStatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// PerformHealthChecks executes all health checks and returns the overall status
func (d *Daemon) PerformHealthChecks(ctx context.Context) *HealthResponse {
	checks := []HealthCheck{
		d.timed("daemon_status", d.checkDaemonHealth),
		d.timed("collection", d.checkCollectionHealth),
		d.timed("database", func() (HealthStatus, string) { return d.checkDatabaseHealth(ctx) }),
	}

	overall := HealthStatusHealthy
	for _, c := range checks {
		if c.Status.rank() > overall.rank() {
			overall = c.Status
		}
	}

	return &HealthResponse{
		Status:    overall,
		Timestamp: d.clock.Now(),
		Uptime:    d.clock.Since(d.GetStartTime()).Round(time.Second).String(),
		Version:   version.Version,
		Checks:    checks,
	}
}

func (d *Daemon) timed(name string, fn func() (HealthStatus, string)) HealthCheck {
	start := d.clock.Now()
	status, msg := fn()
	return HealthCheck{
		Name:        name,
		Status:      status,
		Message:     msg,
		Duration:    d.clock.Since(start),
		LastChecked: start,
	}
}

// checkDaemonHealth verifies the daemon is in a healthy state
func (d *Daemon) checkDaemonHealth() (HealthStatus, string) {
	switch d.GetStatus() {
	case StatusRunning:
		return HealthStatusHealthy, "Daemon is running normally"
	case StatusStarting:
		return HealthStatusDegraded, "Daemon is still starting up"
	case StatusStopping:
		return HealthStatusDegraded, "Daemon is shutting down"
	case StatusError:
		return HealthStatusUnhealthy, "Daemon is in error state"
	default:
		return HealthStatusUnhealthy, "Daemon is not running"
	}
}

// checkCollectionHealth looks at the age and outcome of the last completed cycle.
func (d *Daemon) checkCollectionHealth() (HealthStatus, string) {
	report, ok := d.scheduler.LastReport()
	if !ok {
		if d.scheduler.State() == scheduler.StateRunning {
			return HealthStatusDegraded, "First collection cycle in progress"
		}
		return HealthStatusDegraded, "No collection cycle has completed yet"
	}

	interval := d.scheduler.Interval()
	age := d.clock.Since(report.StartedAt.Add(report.Duration))
	if age > staleFactor*interval {
		return HealthStatusUnhealthy, fmt.Sprintf("Last collection finished %s ago (interval %s)", age.Round(time.Second), interval)
	}
	if failed := len(report.Failed()); failed > 0 {
		return HealthStatusDegraded, fmt.Sprintf("%d/%d metric sources failed in the last cycle", failed, len(report.Outcomes))
	}
	return HealthStatusHealthy, fmt.Sprintf("All %d metric sources collected", len(report.Outcomes))
}

// checkDatabaseHealth pings the monitored database.
func (d *Daemon) checkDatabaseHealth(ctx context.Context) (HealthStatus, string) {
	if err := database.Ping(ctx, d.db, d.GetConfig().Database.PingTimeoutDuration()); err != nil {
		return HealthStatusUnhealthy, err.Error()
	}
	return HealthStatusHealthy, "Database is reachable"
}
