package ops

import (
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
)

// ParamThreshold is the parameter every built-in parametrised filter takes.
const ParamThreshold = "threshold"

var anyIO = []IOType{{Input: mltypes.Any}}

var numericIO = []IOType{
	{Input: mltypes.Integer},
	{Input: mltypes.Double},
}

// keyTags are the structural tags no value filter or numeric aggregation may touch.
var keyTags = []string{mltypes.TagForeignKey, mltypes.TagPrimaryKey, mltypes.TagTimeIndex}

var (
	// AllFilter keeps every row.
	AllFilter = &Class{
		Name:             "AllFilterOp",
		Category:         CategoryFilter,
		ColumnAgnostic:   true,
		InputOutputTypes: anyIO,
		Describe:         func(*Op) string { return "" },
		Filter:           func(_ *Op, f *frame.Frame) (*frame.Frame, error) { return f, nil },
	}

	// EqFilter keeps rows whose value equals the threshold.
	EqFilter = &Class{
		Name:             "EqFilterOp",
		Category:         CategoryFilter,
		Parameters:       []Parameter{{Name: ParamThreshold, Kind: ParamColumnValue}},
		InputOutputTypes: anyIO,
		RequiredTags:     []string{mltypes.TagCategory},
		RestrictedTags:   keyTags,
		Describe: func(o *Op) string {
			return "with " + o.column + " equal to " + o.paramText(ParamThreshold)
		},
		Filter: func(o *Op, f *frame.Frame) (*frame.Frame, error) {
			return valueFilter(o, f, func(v, threshold any) bool { return frame.Equal(v, threshold) })
		},
	}

	// NeqFilter keeps rows whose value is present and differs from the threshold.
	NeqFilter = &Class{
		Name:             "NeqFilterOp",
		Category:         CategoryFilter,
		Parameters:       []Parameter{{Name: ParamThreshold, Kind: ParamColumnValue}},
		InputOutputTypes: anyIO,
		RequiredTags:     []string{mltypes.TagCategory},
		RestrictedTags:   keyTags,
		Describe: func(o *Op) string {
			return "with " + o.column + " not equal to " + o.paramText(ParamThreshold)
		},
		Filter: func(o *Op, f *frame.Frame) (*frame.Frame, error) {
			return valueFilter(o, f, func(v, threshold any) bool { return !frame.Equal(v, threshold) })
		},
	}

	// GreaterFilter keeps rows strictly greater than a numeric threshold.
	GreaterFilter = &Class{
		Name:             "GreaterFilterOp",
		Category:         CategoryFilter,
		Parameters:       []Parameter{{Name: ParamThreshold, Kind: ParamNumeric}},
		InputOutputTypes: numericIO,
		RequiredTags:     []string{mltypes.TagNumeric},
		RestrictedTags:   append([]string{mltypes.TagCategory, mltypes.TagIndex}, keyTags...),
		Describe: func(o *Op) string {
			return "with " + o.column + " greater than " + o.paramText(ParamThreshold)
		},
		Filter: func(o *Op, f *frame.Frame) (*frame.Frame, error) {
			return numericFilter(o, f, func(v, threshold float64) bool { return v > threshold })
		},
	}

	// LessFilter keeps rows strictly less than a numeric threshold.
	LessFilter = &Class{
		Name:             "LessFilterOp",
		Category:         CategoryFilter,
		Parameters:       []Parameter{{Name: ParamThreshold, Kind: ParamNumeric}},
		InputOutputTypes: numericIO,
		RequiredTags:     []string{mltypes.TagNumeric},
		RestrictedTags:   append([]string{mltypes.TagCategory, mltypes.TagIndex}, keyTags...),
		Describe: func(o *Op) string {
			return "with " + o.column + " less than " + o.paramText(ParamThreshold)
		},
		Filter: func(o *Op, f *frame.Frame) (*frame.Frame, error) {
			return numericFilter(o, f, func(v, threshold float64) bool { return v < threshold })
		},
	}
)

// DefaultFilters returns the built-in filter classes in enumeration order.
func DefaultFilters() []*Class {
	return []*Class{AllFilter, EqFilter, NeqFilter, GreaterFilter, LessFilter}
}

// valueFilter keeps present values for which keep(value, threshold) holds.
func valueFilter(o *Op, f *frame.Frame, keep func(v, threshold any) bool) (*frame.Frame, error) {
	s, err := o.series(f)
	if err != nil {
		return nil, err
	}
	threshold := o.params[ParamThreshold]
	return f.Filter(func(row int) bool {
		return !s.IsMissing(row) && keep(s.Value(row), threshold)
	}), nil
}

// numericFilter keeps numeric values for which keep(value, threshold) holds.
func numericFilter(o *Op, f *frame.Frame, keep func(v, threshold float64) bool) (*frame.Frame, error) {
	s, err := o.series(f)
	if err != nil {
		return nil, err
	}
	threshold, _ := frame.ToFloat(o.params[ParamThreshold])
	return f.Filter(func(row int) bool {
		v, ok := frame.ToFloat(s.Value(row))
		return ok && keep(v, threshold)
	}), nil
}
