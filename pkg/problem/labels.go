package problem

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/labeler"
)

// IdentityColumn is the constant grouping key used for dataset-wide problems.
const IdentityColumn = "__identity__"

// Execute runs the pipeline over one slice and returns the label.
func (p *Problem) Execute(slice *frame.Frame) (any, error) {
	filtered, err := p.Filter.Filter(slice)
	if err != nil {
		return nil, err
	}
	transformed, err := p.Transformation.Transform(filtered)
	if err != nil {
		return nil, err
	}
	return p.Aggregation.Aggregate(transformed)
}

// CreateTargetValues labels f with drop-empty windows of the problem's window size.
func (p *Problem) CreateTargetValues(f *frame.Frame) (*frame.Frame, error) {
	return p.Label(f, labeler.DefaultOptions())
}

// Label labels f. GroupBy, TimeIndex and WindowSize of opts default to the problem's entity
// column, the schema's time index and the problem's window size. Without an entity column the
// whole frame is one group and the output has only cutoff_time and target.
func (p *Problem) Label(f *frame.Frame, opts labeler.Options) (*frame.Frame, error) {
	if !p.HasParametersSet() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrParametersNotSet, p.Filter)
	}
	if opts.TimeIndex == "" {
		opts.TimeIndex = p.Metadata.TimeIndex()
	}
	if opts.TimeIndex == "" {
		return nil, fmt.Errorf("%w: schema has no time index", apperrors.ErrInvalidTimeIndex)
	}
	if opts.WindowSize == 0 {
		opts.WindowSize = p.WindowSize
	}
	if opts.GroupBy == "" {
		opts.GroupBy = p.EntityColumn
	}
	if opts.GroupBy != "" {
		return labeler.Label(f, p.Execute, opts)
	}

	identity := make([]any, f.Len())
	for i := range identity {
		identity[i] = int64(0)
	}
	withIdentity, err := f.WithColumn(frame.NewSeries(IdentityColumn, frame.Int64, identity))
	if err != nil {
		return nil, err
	}
	opts.GroupBy = IdentityColumn
	out, err := labeler.Label(withIdentity, func(slice *frame.Frame) (any, error) {
		return p.Execute(slice.Drop(IdentityColumn))
	}, opts)
	if err != nil {
		return nil, err
	}
	return out.Drop(IdentityColumn), nil
}
