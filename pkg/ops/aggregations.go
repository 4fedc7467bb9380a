package ops

import (
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
	"github.com/ekaya-inc/ekaya-trane/pkg/stats"
)

// numericAggregationRestricted keeps sums and extrema off keys, identifiers and codes.
var numericAggregationRestricted = append([]string{mltypes.TagCategory, mltypes.TagIndex}, keyTags...)

var (
	// CountAggregation counts the rows of the slice.
	CountAggregation = &Class{
		Name:             "CountAggregationOp",
		Category:         CategoryAggregation,
		ColumnAgnostic:   true,
		InputOutputTypes: []IOType{{Input: mltypes.Any, Output: mltypes.Integer}},
		Describe:         func(*Op) string { return "the number of records" },
		Aggregate: func(_ *Op, f *frame.Frame) (any, error) {
			return int64(f.Len()), nil
		},
	}

	// ExistsAggregation reports whether any row survives. It marks a classification problem.
	ExistsAggregation = &Class{
		Name:             "ExistsAggregationOp",
		Category:         CategoryAggregation,
		ColumnAgnostic:   true,
		InputOutputTypes: []IOType{{Input: mltypes.Any, Output: mltypes.Boolean}},
		RestrictedOps:    []string{"AllFilterOp"},
		Describe:         func(*Op) string { return "whether any record exists" },
		Aggregate: func(_ *Op, f *frame.Frame) (any, error) {
			return f.Len() > 0, nil
		},
	}

	SumAggregation = &Class{
		Name:     "SumAggregationOp",
		Category: CategoryAggregation,
		InputOutputTypes: []IOType{
			{Input: mltypes.Integer, Output: mltypes.Double},
			{Input: mltypes.Double, Output: mltypes.Double},
		},
		RequiredTags:   []string{mltypes.TagNumeric},
		RestrictedTags: numericAggregationRestricted,
		Describe:       func(o *Op) string { return "the total " + o.column },
		Aggregate: func(o *Op, f *frame.Frame) (any, error) {
			return floatsAggregate(o, f, func(x []float64) any {
				total := 0.0
				for _, v := range x {
					total += v
				}
				return total
			})
		},
	}

	AvgAggregation = &Class{
		Name:     "AvgAggregationOp",
		Category: CategoryAggregation,
		InputOutputTypes: []IOType{
			{Input: mltypes.Integer, Output: mltypes.Double},
			{Input: mltypes.Double, Output: mltypes.Double},
		},
		RequiredTags:   []string{mltypes.TagNumeric},
		RestrictedTags: numericAggregationRestricted,
		Describe:       func(o *Op) string { return "the average " + o.column },
		Aggregate: func(o *Op, f *frame.Frame) (any, error) {
			return floatsAggregate(o, f, func(x []float64) any {
				if len(x) == 0 {
					return nil
				}
				return stats.Mean(x)
			})
		},
	}

	MaxAggregation = &Class{
		Name:             "MaxAggregationOp",
		Category:         CategoryAggregation,
		InputOutputTypes: numericIO,
		RequiredTags:     []string{mltypes.TagNumeric},
		RestrictedTags:   numericAggregationRestricted,
		Describe:         func(o *Op) string { return "the maximum " + o.column },
		Aggregate: func(o *Op, f *frame.Frame) (any, error) {
			return extremum(o, f, 1)
		},
	}

	MinAggregation = &Class{
		Name:             "MinAggregationOp",
		Category:         CategoryAggregation,
		InputOutputTypes: numericIO,
		RequiredTags:     []string{mltypes.TagNumeric},
		RestrictedTags:   numericAggregationRestricted,
		Describe:         func(o *Op) string { return "the minimum " + o.column },
		Aggregate: func(o *Op, f *frame.Frame) (any, error) {
			return extremum(o, f, -1)
		},
	}

	// MajorityAggregation returns the modal value; ties go to the smallest value.
	MajorityAggregation = &Class{
		Name:             "MajorityAggregationOp",
		Category:         CategoryAggregation,
		InputOutputTypes: anyIO,
		RequiredTags:     []string{mltypes.TagCategory},
		RestrictedTags:   []string{mltypes.TagPrimaryKey, mltypes.TagTimeIndex},
		Describe:         func(o *Op) string { return "the majority " + o.column },
		Aggregate: func(o *Op, f *frame.Frame) (any, error) {
			s, err := o.series(f)
			if err != nil {
				return nil, err
			}
			counts := s.ValueCounts()
			if len(counts) == 0 {
				return nil, nil
			}
			return counts[0].Value, nil
		},
	}

	FirstAggregation = &Class{
		Name:             "FirstAggregationOp",
		Category:         CategoryAggregation,
		InputOutputTypes: anyIO,
		RestrictedTags:   []string{mltypes.TagPrimaryKey, mltypes.TagTimeIndex},
		Describe:         func(o *Op) string { return "the first " + o.column },
		Aggregate: func(o *Op, f *frame.Frame) (any, error) {
			return positional(o, f, func(n int) int { return 0 })
		},
	}

	LastAggregation = &Class{
		Name:             "LastAggregationOp",
		Category:         CategoryAggregation,
		InputOutputTypes: anyIO,
		RestrictedTags:   []string{mltypes.TagPrimaryKey, mltypes.TagTimeIndex},
		Describe:         func(o *Op) string { return "the last " + o.column },
		Aggregate: func(o *Op, f *frame.Frame) (any, error) {
			return positional(o, f, func(n int) int { return n - 1 })
		},
	}
)

// DefaultAggregations returns the built-in aggregation classes in enumeration order.
func DefaultAggregations() []*Class {
	return []*Class{
		CountAggregation, SumAggregation, AvgAggregation, MaxAggregation, MinAggregation,
		MajorityAggregation, ExistsAggregation, FirstAggregation, LastAggregation,
	}
}

// floatsAggregate runs fn over the present values of the bound column. Empty slices are missing.
func floatsAggregate(o *Op, f *frame.Frame, fn func([]float64) any) (any, error) {
	s, err := o.series(f)
	if err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return nil, nil
	}
	return fn(s.Floats()), nil
}

// extremum returns the largest (sign 1) or smallest (sign -1) present value, keeping its type.
func extremum(o *Op, f *frame.Frame, sign int) (any, error) {
	s, err := o.series(f)
	if err != nil {
		return nil, err
	}
	var best any
	for i := 0; i < s.Len(); i++ {
		if s.IsMissing(i) {
			continue
		}
		v := s.Value(i)
		if best == nil || sign*frame.Compare(v, best) > 0 {
			best = v
		}
	}
	return best, nil
}

func positional(o *Op, f *frame.Frame, pick func(n int) int) (any, error) {
	s, err := o.series(f)
	if err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, nil
	}
	return s.Value(pick(s.Len())), nil
}
