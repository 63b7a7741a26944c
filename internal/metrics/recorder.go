package metrics

import "time"

// Recorder defines observability hooks for collection cycles. All methods must be safe to
// call concurrently.
type Recorder interface {
	ObserveCollectionDuration(d time.Duration)
	ObserveSourceDuration(source string, d time.Duration)
	IncSourceError(source string)
	SetSourceUp(source string, up bool)
	IncCyclesSkipped()
	SetLastCollection(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCollectionDuration(time.Duration)     {}
func (NoopRecorder) ObserveSourceDuration(string, time.Duration) {}
func (NoopRecorder) IncSourceError(string)                       {}
func (NoopRecorder) SetSourceUp(string, bool)                    {}
func (NoopRecorder) IncCyclesSkipped()                           {}
func (NoopRecorder) SetLastCollection(time.Time)                 {}
