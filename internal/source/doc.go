// Package source defines metric sources: units of work that run exactly one read-only
// query and return either a scalar or a label-keyed set of values.
//
// A source never lets a driver error escape. Every failure is returned as a
// *CollectionError naming the source and the phase that failed, with the driver's
// error reduced to its message. Context cancellation and deadlines are kept as
// context.Canceled and context.DeadlineExceeded so callers can still match them.
package source
