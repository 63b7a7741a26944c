package source

import (
	"context"
	"database/sql"
	"time"
)

// Option configures SQL-backed sources.
type Option func(*queryOptions)

type queryOptions struct {
	timeout time.Duration
}

// WithTimeout bounds each query. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *queryOptions) { o.timeout = d }
}

func buildOptions(opts []Option) queryOptions {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o queryOptions) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return ctx, func() {}
}

// ScalarQuery is a source whose query returns one row with one numeric column.
type ScalarQuery struct {
	name  string
	db    Queryer
	query string
	opts  queryOptions
}

// NewScalarQuery creates a scalar source.
func NewScalarQuery(name string, db Queryer, query string, opts ...Option) *ScalarQuery {
	return &ScalarQuery{name: name, db: db, query: query, opts: buildOptions(opts)}
}

func (q *ScalarQuery) Name() string { return q.name }

func (q *ScalarQuery) Collect(ctx context.Context) (Value, error) {
	ctx, cancel := q.opts.context(ctx)
	defer cancel()

	rows, err := q.db.QueryContext(ctx, q.query)
	if err != nil {
		return Value{}, NewCollectionError(q.name, PhaseQuery, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Value{}, NewCollectionError(q.name, PhaseQuery, err)
		}
		return Value{}, NewCollectionError(q.name, PhaseResult, ErrNoRows)
	}
	var v sql.NullFloat64
	if err := rows.Scan(&v); err != nil {
		return Value{}, NewCollectionError(q.name, PhaseScan, err)
	}
	if !v.Valid {
		return Value{}, NewCollectionError(q.name, PhaseResult, ErrNullValue)
	}
	return Scalar(v.Float64), nil
}

// LabeledQuery is a source whose query returns rows of label columns followed by one
// numeric column. Each successful call returns the complete set the query produced.
// NULL values are reported as 0; rows with a NULL label are skipped.
type LabeledQuery struct {
	name   string
	db     Queryer
	query  string
	labels int
	opts   queryOptions
}

// NewLabeledQuery creates a labeled source with labelCount leading label columns.
func NewLabeledQuery(name string, db Queryer, query string, labelCount int, opts ...Option) *LabeledQuery {
	if labelCount < 1 {
		labelCount = 1
	}
	return &LabeledQuery{name: name, db: db, query: query, labels: labelCount, opts: buildOptions(opts)}
}

func (q *LabeledQuery) Name() string { return q.name }

func (q *LabeledQuery) Collect(ctx context.Context) (Value, error) {
	ctx, cancel := q.opts.context(ctx)
	defer cancel()

	rows, err := q.db.QueryContext(ctx, q.query)
	if err != nil {
		return Value{}, NewCollectionError(q.name, PhaseQuery, err)
	}
	defer rows.Close()

	result := make(map[string]float64)
	labels := make([]sql.NullString, q.labels)
	dest := make([]any, 0, q.labels+1)
	for i := range labels {
		dest = append(dest, &labels[i])
	}
	var v sql.NullFloat64
	dest = append(dest, &v)

	values := make([]string, q.labels)
rowLoop:
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return Value{}, NewCollectionError(q.name, PhaseScan, err)
		}
		for i, l := range labels {
			if !l.Valid {
				continue rowLoop
			}
			values[i] = l.String
		}
		result[LabelKey(values...)] = v.Float64
	}
	if err := rows.Err(); err != nil {
		return Value{}, NewCollectionError(q.name, PhaseQuery, err)
	}
	return Value{Kind: KindLabeled, Labeled: result}, nil
}
