package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/oraexporter/internal/cache"
	"git.home.luguber.info/inful/oraexporter/internal/collector"
	"git.home.luguber.info/inful/oraexporter/internal/config"
	"git.home.luguber.info/inful/oraexporter/internal/database"
	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
	"git.home.luguber.info/inful/oraexporter/internal/metrics"
	"git.home.luguber.info/inful/oraexporter/internal/source"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Timeout time.Duration `help:"Overall deadline for the collection cycle" default:"1m"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	g.Logger = root.ConfigureLogging(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database, g.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	defs := source.Catalog(db, source.OracleQueries, source.WithTimeout(cfg.Collection.QueryTimeoutDuration()))
	return RunCheck(ctx, os.Stdout, defs, collector.WithConcurrency(cfg.Collection.MaxConcurrency), collector.WithLogger(g.Logger))
}

// RunCheck collects every definition once and prints the results in exposition-like
// form. It fails if any source failed.
func RunCheck(ctx context.Context, out io.Writer, defs []source.Definition, opts ...collector.Option) error {
	col, err := collector.New(defs, cache.New(), opts...)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "invalid metric catalog").Build()
	}
	report := col.RunCycle(ctx)

	labels := make(map[string][]string, len(defs))
	for _, d := range defs {
		labels[d.Name] = d.Labels
	}
	for _, o := range report.Outcomes {
		name := metrics.PromName(o.Metric)
		if !o.OK() {
			fmt.Fprintf(out, "FAILED %s: %v\n", name, o.Err)
			continue
		}
		if o.Value.Kind == source.KindScalar {
			fmt.Fprintf(out, "%s %s\n", name, formatValue(o.Value.Scalar))
			continue
		}
		keys := make([]string, 0, len(o.Value.Labeled))
		for k := range o.Value.Labeled {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "%s{%s} %s\n", name, formatLabels(labels[o.Metric], source.LabelValues(k)), formatValue(o.Value.Labeled[k]))
		}
	}

	if failed := len(report.Failed()); failed > 0 {
		return errors.SourceError(fmt.Sprintf("%d of %d metric sources failed", failed, len(report.Outcomes))).
			WithContext("cycle_id", report.ID).
			Build()
	}
	return nil
}

func formatLabels(names, values []string) string {
	pairs := make([]string, 0, len(names))
	for i, n := range names {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		pairs = append(pairs, fmt.Sprintf("%s=%q", n, v))
	}
	return strings.Join(pairs, ",")
}

func formatValue(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
