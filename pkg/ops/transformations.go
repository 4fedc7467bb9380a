package ops

import (
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
)

var (
	// IdentityTransformation passes the slice through unchanged.
	IdentityTransformation = &Class{
		Name:             "IdentityOp",
		Category:         CategoryTransformation,
		ColumnAgnostic:   true,
		InputOutputTypes: anyIO,
		Describe:         func(*Op) string { return "" },
		Transform:        func(_ *Op, f *frame.Frame) (*frame.Frame, error) { return f, nil },
	}

	// OrderByTransformation sorts the slice ascending by the bound column, missing last.
	OrderByTransformation = &Class{
		Name:     "OrderByOp",
		Category: CategoryTransformation,
		InputOutputTypes: []IOType{
			{Input: mltypes.Integer},
			{Input: mltypes.Double},
			{Input: mltypes.Datetime},
			{Input: mltypes.Ordinal},
		},
		RestrictedTags: []string{mltypes.TagPrimaryKey},
		Describe: func(o *Op) string {
			return "sorted by " + o.column
		},
		Transform: func(o *Op, f *frame.Frame) (*frame.Frame, error) {
			if _, err := o.series(f); err != nil {
				return nil, err
			}
			return f.SortBy(o.column)
		},
	}
)

// DefaultTransformations returns the built-in transformation classes in enumeration order.
func DefaultTransformations() []*Class {
	return []*Class{IdentityTransformation, OrderByTransformation}
}
