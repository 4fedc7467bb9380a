// Package ops is the operator algebra: filters reduce a slice of rows, transformations
// reorder or shrink it, and aggregations collapse it to the label scalar.
//
// An operator is a value: a Class (static contract and kernels) plus a bound column and a
// parameter store. Dispatch happens through the class table; there is no type hierarchy.
package ops

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
)

// Category is the position an operator occupies in a problem pipeline.
type Category string

const (
	CategoryFilter         Category = "filter"
	CategoryTransformation Category = "transformation"
	CategoryAggregation    Category = "aggregation"
)

// Categories lists categories in pipeline order.
var Categories = []Category{CategoryFilter, CategoryTransformation, CategoryAggregation}

// ParamKind describes the values a parameter accepts.
type ParamKind string

const (
	// ParamNumeric accepts any number; values are stored as float64.
	ParamNumeric ParamKind = "numeric"
	// ParamColumnValue accepts a scalar of the bound column's own type.
	ParamColumnValue ParamKind = "column_value"
)

// Parameter is one required parameter of an operator class.
type Parameter struct {
	Name string
	Kind ParamKind
}

// IOType is one accepted (input, output) pair. A nil Output keeps the column's type.
type IOType struct {
	Input  *mltypes.LogicalType
	Output *mltypes.LogicalType
}

// Op is an operator instance. The zero value is not usable; build ops with Class.New.
type Op struct {
	class  *Class
	column string
	params map[string]any
}

func (o *Op) Class() *Class        { return o.class }
func (o *Op) Name() string         { return o.class.Name }
func (o *Op) Category() Category   { return o.class.Category }
func (o *Op) ColumnAgnostic() bool { return o.class.ColumnAgnostic }

// ColumnName returns the bound column, or "" when unbound.
func (o *Op) ColumnName() string { return o.column }

// IsBound reports whether the operator is bound to a column.
func (o *Op) IsBound() bool { return o.column != "" }

func (o *Op) RequiredParameters() []Parameter {
	return slices.Clone(o.class.Parameters)
}

func (o *Op) InputOutputTypes() []IOType {
	return slices.Clone(o.class.InputOutputTypes)
}

func (o *Op) RestrictedTags() mltypes.TagSet { return mltypes.NewTagSet(o.class.RestrictedTags...) }
func (o *Op) RequiredTags() mltypes.TagSet   { return mltypes.NewTagSet(o.class.RequiredTags...) }
func (o *Op) RestrictedOps() []string        { return slices.Clone(o.class.RestrictedOps) }

// Parameters returns a copy of the parameter store.
func (o *Op) Parameters() map[string]any {
	return maps.Clone(o.params)
}

// Parameter returns one stored parameter value.
func (o *Op) Parameter(name string) (any, bool) {
	v, ok := o.params[name]
	return v, ok
}

// SetParameters stores parameter values. Names must be required parameters of the class;
// numeric parameters must be numbers. Parameters not mentioned keep their current value.
func (o *Op) SetParameters(values map[string]any) error {
	next := maps.Clone(o.params)
	if next == nil {
		next = make(map[string]any, len(values))
	}
	for name, v := range values {
		p, ok := o.class.parameter(name)
		if !ok {
			return fmt.Errorf("%w: %s has no parameter %q", apperrors.ErrInvalidParameter, o.class.Name, name)
		}
		if frame.IsMissing(v) {
			return fmt.Errorf("%w: %s.%s cannot be missing", apperrors.ErrInvalidParameter, o.class.Name, name)
		}
		v = frame.Normalize(v)
		if p.Kind == ParamNumeric {
			f, ok := frame.ToFloat(v)
			if !ok {
				return fmt.Errorf("%w: %s.%s must be numeric, got %T", apperrors.ErrInvalidParameter, o.class.Name, name, v)
			}
			v = f
		}
		next[name] = v
	}
	o.params = next
	return nil
}

// HasParametersSet reports whether every required parameter has a value.
func (o *Op) HasParametersSet() bool {
	for _, p := range o.class.Parameters {
		if _, ok := o.params[p.Name]; !ok {
			return false
		}
	}
	return true
}

// ClearParameters empties the parameter store.
func (o *Op) ClearParameters() {
	o.params = nil
}

// Clone returns an independent copy.
func (o *Op) Clone() *Op {
	return &Op{class: o.class, column: o.column, params: maps.Clone(o.params)}
}

// Equal compares class, bound column and parameter values.
func (o *Op) Equal(other *Op) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.class.Name != other.class.Name || o.column != other.column || len(o.params) != len(other.params) {
		return false
	}
	for k, v := range o.params {
		w, ok := other.params[k]
		if !ok || !frame.Equal(v, w) {
			return false
		}
	}
	return true
}

// Description returns the operator's fragment of a problem description. Unset parameters
// render as {name}.
func (o *Op) Description() string {
	if o.class.Describe == nil {
		return ""
	}
	return o.class.Describe(o)
}

func (o *Op) paramText(name string) string {
	v, ok := o.params[name]
	if !ok {
		return "{" + name + "}"
	}
	return frame.FormatValue(v)
}

func (o *Op) String() string {
	var b strings.Builder
	b.WriteString(o.class.Name)
	b.WriteByte('(')
	b.WriteString(o.column)
	for _, p := range o.class.Parameters {
		b.WriteString(", ")
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(o.paramText(p.Name))
	}
	b.WriteByte(')')
	return b.String()
}

// Resolve applies the compatibility rules to a column type: the column's tags must avoid
// the restricted tags and carry one of the required tags (if any), and the first IO pair
// whose input accepts the column determines the output type.
func (o *Op) Resolve(column mltypes.MLType) (mltypes.MLType, bool) {
	tags := column.Tags()
	if tags.Intersects(o.RestrictedTags()) {
		return mltypes.MLType{}, false
	}
	if len(o.class.RequiredTags) > 0 && !tags.Intersects(o.RequiredTags()) {
		return mltypes.MLType{}, false
	}
	for _, io := range o.class.InputOutputTypes {
		if !mltypes.CheckTypeCompatible(io.Input, column) {
			continue
		}
		if io.Output == nil {
			return column, true
		}
		return mltypes.New(io.Output), true
	}
	return mltypes.MLType{}, false
}

// UnboundOutput returns the concrete output type of an unbound operator, if it declares one.
func (o *Op) UnboundOutput() (mltypes.MLType, bool) {
	for _, io := range o.class.InputOutputTypes {
		if io.Output != nil {
			return mltypes.New(io.Output), true
		}
	}
	return mltypes.MLType{}, false
}

// SyntheticColumn is the working-schema column under which an unbound operator's output is
// recorded during validation.
func (o *Op) SyntheticColumn() string {
	return "__" + o.class.Name + "__"
}

// Filter runs a filter operator over a slice.
func (o *Op) Filter(f *frame.Frame) (*frame.Frame, error) {
	if o.class.Category != CategoryFilter || o.class.Filter == nil {
		return nil, fmt.Errorf("%s is not a filter", o.class.Name)
	}
	if !o.HasParametersSet() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrParametersNotSet, o)
	}
	return o.class.Filter(o, f)
}

// Transform runs a transformation operator over a slice.
func (o *Op) Transform(f *frame.Frame) (*frame.Frame, error) {
	if o.class.Category != CategoryTransformation || o.class.Transform == nil {
		return nil, fmt.Errorf("%s is not a transformation", o.class.Name)
	}
	return o.class.Transform(o, f)
}

// Aggregate collapses a slice to a scalar. Empty slices yield the class's empty value.
func (o *Op) Aggregate(f *frame.Frame) (any, error) {
	if o.class.Category != CategoryAggregation || o.class.Aggregate == nil {
		return nil, fmt.Errorf("%s is not an aggregation", o.class.Name)
	}
	return o.class.Aggregate(o, f)
}

// series returns the bound series of f.
func (o *Op) series(f *frame.Frame) (*frame.Series, error) {
	if o.column == "" {
		return nil, fmt.Errorf("%s is not bound to a column", o.class.Name)
	}
	s, ok := f.Column(o.column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownColumn, o.column)
	}
	return s, nil
}
