package source

import (
	"context"
	stderrors "errors"
	"fmt"

	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
)

// Phase names the step of a collection that failed.
type Phase string

const (
	PhaseQuery  Phase = "query"
	PhaseScan   Phase = "scan"
	PhaseResult Phase = "result"
	PhasePanic  Phase = "panic"
)

var (
	// ErrNoRows is returned when a scalar query produces no row.
	ErrNoRows = stderrors.New("query returned no rows")
	// ErrNullValue is returned when a scalar query produces NULL.
	ErrNullValue = stderrors.New("query returned NULL")
)

// CollectionError reports a failed collection. It unwraps to a source-category
// ClassifiedError whose cause carries no driver-specific types.
type CollectionError struct {
	Source string
	Phase  Phase
	err    *errors.ClassifiedError
}

// NewCollectionError builds a CollectionError for source, detaching cause from its
// concrete type.
func NewCollectionError(source string, phase Phase, cause error) *CollectionError {
	return &CollectionError{
		Source: source,
		Phase:  phase,
		err: errors.SourceError(fmt.Sprintf("%s failed", phase)).
			WithCause(detach(cause)).
			WithContext("source", source).
			WithContext("phase", string(phase)).
			Build(),
	}
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("source %s: %s failed: %v", e.Source, e.Phase, e.err.Cause())
}

func (e *CollectionError) Unwrap() error { return e.err }

func detach(err error) error {
	switch {
	case err == nil:
		return stderrors.New("unknown error")
	case stderrors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	case stderrors.Is(err, context.Canceled):
		return context.Canceled
	case stderrors.Is(err, ErrNoRows):
		return ErrNoRows
	case stderrors.Is(err, ErrNullValue):
		return ErrNullValue
	default:
		return stderrors.New(err.Error())
	}
}
