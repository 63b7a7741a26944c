package source

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
)

// MetricSource produces the value of one metric.
type MetricSource interface {
	// Name identifies the source in logs and self-metrics.
	Name() string
	// Collect runs the source's query once. A non-nil error is always a *CollectionError.
	Collect(ctx context.Context) (Value, error)
}

// Queryer is the database handle a source needs. *sql.DB, *sql.Conn and *sql.Tx
// satisfy it.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Definition describes one exposed metric and the single source that produces it.
type Definition struct {
	Name        string
	Description string
	Labels      []string // ordered label schema; empty for scalar metrics
	Source      MetricSource
}

// Kind reports whether the definition is scalar or labeled.
func (d Definition) Kind() Kind {
	if len(d.Labels) > 0 {
		return KindLabeled
	}
	return KindScalar
}

// ValidateDefinitions checks that names are unique and every definition has a source.
func ValidateDefinitions(defs []Definition) error {
	seen := make(map[string]struct{}, len(defs))
	var errs []error
	for i, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Errorf("definition %d: empty name", i))
			continue
		}
		if _, dup := seen[d.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate metric name %q", d.Name))
		}
		seen[d.Name] = struct{}{}
		if d.Source == nil {
			errs = append(errs, fmt.Errorf("metric %q has no source", d.Name))
		}
	}
	return stderrors.Join(errs...)
}
