// Package generator enumerates the valid prediction problems of a schema.
package generator

import (
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/denormalize"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
	"github.com/ekaya-inc/ekaya-trane/pkg/ops"
	"github.com/ekaya-inc/ekaya-trane/pkg/problem"
)

// Options controls enumeration. Nil class lists mean the default classes of that category.
type Options struct {
	// TargetTable selects the root table of a multi-table schema.
	TargetTable  string
	EntityColumn string
	WindowSize   time.Duration

	FilterOps         []*ops.Class
	TransformationOps []*ops.Class
	AggregationOps    []*ops.Class

	// GenerateThresholds populates each problem's parameters from Frame before yielding.
	GenerateThresholds bool
	Frame              *frame.Frame
	Thresholds         problem.ThresholdConfig
}

// Generator yields problems lazily in a fixed order: filter class, transformation class,
// aggregation class, then filter column and aggregation column in schema order.
type Generator struct {
	schema *metadata.SingleTable
	opts   Options
	logger *zap.Logger
}

// New returns a generator over a single-table schema.
func New(md *metadata.SingleTable, opts Options, logger *zap.Logger) (*Generator, error) {
	if md == nil {
		return nil, fmt.Errorf("generator needs a schema")
	}
	if opts.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %s", opts.WindowSize)
	}
	if opts.EntityColumn != "" && !md.HasColumn(opts.EntityColumn) {
		return nil, fmt.Errorf("entity column %q is not in the schema", opts.EntityColumn)
	}
	if opts.GenerateThresholds && opts.Frame == nil {
		return nil, fmt.Errorf("threshold generation needs a frame")
	}
	if opts.FilterOps == nil {
		opts.FilterOps = ops.DefaultFilters()
	}
	if opts.TransformationOps == nil {
		opts.TransformationOps = ops.DefaultTransformations()
	}
	if opts.AggregationOps == nil {
		opts.AggregationOps = ops.DefaultAggregations()
	}
	if opts.Thresholds == (problem.ThresholdConfig{}) {
		opts.Thresholds = problem.DefaultThresholdConfig()
	}
	for category, classes := range map[ops.Category][]*ops.Class{
		ops.CategoryFilter:         opts.FilterOps,
		ops.CategoryTransformation: opts.TransformationOps,
		ops.CategoryAggregation:    opts.AggregationOps,
	} {
		for _, c := range classes {
			if c.Category != category {
				return nil, fmt.Errorf("%s is a %s, listed as %s", c.Name, c.Category, category)
			}
		}
	}

	logger = logger.Named("generator")
	if ti := md.TimeIndex(); ti != "" {
		if t, _ := md.Type(ti); !t.IsDatetime() {
			logger.Warn("Time index is not a datetime column",
				zap.String("time_index", ti),
				zap.String("type", t.String()))
		}
	}
	return &Generator{schema: md, opts: opts, logger: logger}, nil
}

// NewMultiTable flattens mt onto opts.TargetTable and returns a generator over the result.
func NewMultiTable(mt *metadata.MultiTable, opts Options, logger *zap.Logger) (*Generator, error) {
	if opts.TargetTable == "" {
		return nil, fmt.Errorf("multi-table generation needs a target table")
	}
	flat, err := denormalize.Schema(mt, opts.TargetTable)
	if err != nil {
		return nil, fmt.Errorf("flatten %s: %w", opts.TargetTable, err)
	}
	return New(flat, opts, logger)
}

// Schema returns the single-table schema problems are generated against.
func (g *Generator) Schema() *metadata.SingleTable { return g.schema }

// candidates are the columns an operator may be bound to.
func (g *Generator) candidates() []string {
	excluded := map[string]bool{
		g.opts.EntityColumn:   true,
		g.schema.TimeIndex():  true,
		g.schema.PrimaryKey(): true,
	}
	var out []string
	for _, c := range g.schema.Columns() {
		if !excluded[c] {
			out = append(out, c)
		}
	}
	return out
}

func bindings(c *ops.Class, columns []string) []string {
	if c.ColumnAgnostic {
		return []string{""}
	}
	return columns
}

// Generate yields every valid problem. Each call starts a fresh traversal with fresh
// operators, so the sequence is repeatable.
func (g *Generator) Generate() iter.Seq[*problem.Problem] {
	return func(yield func(*problem.Problem) bool) {
		columns := g.candidates()
		yielded, skipped := 0, 0
		defer func() {
			g.logger.Debug("Generation finished",
				zap.Int("yielded", yielded),
				zap.Int("invalid", skipped))
		}()

		for _, fc := range g.opts.FilterOps {
			for _, tc := range g.opts.TransformationOps {
				for _, ac := range g.opts.AggregationOps {
					if ops.Restricts(fc, ac) {
						continue
					}
					for _, fcol := range bindings(fc, columns) {
						for _, acol := range bindings(ac, columns) {
							tcol := ""
							if !tc.ColumnAgnostic {
								if acol == "" {
									continue
								}
								tcol = acol
							}
							p, err := problem.New(g.schema, []*ops.Op{fc.New(fcol), tc.New(tcol), ac.New(acol)},
								g.opts.EntityColumn, g.opts.WindowSize)
							if err != nil {
								g.logger.Error("Failed to build problem", zap.Error(err))
								return
							}
							if valid, _ := p.IsValid(g.schema); !valid {
								skipped++
								continue
							}
							if g.opts.GenerateThresholds {
								g.inferThresholds(p)
							}
							yielded++
							if !yield(p) {
								return
							}
						}
					}
				}
			}
		}
	}
}

// Problems collects the whole sequence.
func (g *Generator) Problems() []*problem.Problem {
	var out []*problem.Problem
	for p := range g.Generate() {
		out = append(out, p)
	}
	return out
}

// inferThresholds leaves p unset when no candidate is found or inference fails.
func (g *Generator) inferThresholds(p *problem.Problem) {
	if len(p.RequiredParameters()) == 0 {
		return
	}
	ok, err := p.InferThresholds(g.opts.Frame, g.opts.Thresholds)
	switch {
	case err != nil:
		g.logger.Warn("Threshold inference failed",
			zap.String("problem", p.String()),
			zap.Error(err))
	case !ok:
		g.logger.Warn("No threshold candidate",
			zap.String("problem", p.String()),
			zap.String("filter", p.Filter.Name()),
			zap.String("column", p.Filter.ColumnName()))
	}
}
