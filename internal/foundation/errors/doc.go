// Package errors provides the classified error primitives used across oraexporter.
//
// Errors carry a category (config, database, source, scheduler, ...), a severity and a
// retry hint so that the CLI and the daemon can decide what is fatal and what is
// recovered locally.
//
//	err := errors.NewError(errors.CategorySource, "query failed").
//		Warning().
//		Retryable().
//		WithContext("source", "oracle.active.sessions").
//		WithCause(cause).
//		Build()
package errors
