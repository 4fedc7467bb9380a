// Package labeler slices a frame into per-entity time windows and evaluates a labeling
// function on each window, producing a (entity, cutoff_time, target) table.
package labeler

import (
	"fmt"
	"time"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
)

// Output column names of a label table besides the group-by column.
const (
	CutoffTimeColumn = "cutoff_time"
	TargetColumn     = "target"
)

// LabelFunc computes the label of one window slice.
type LabelFunc func(slice *frame.Frame) (any, error)

// Options configure one labeling run.
type Options struct {
	GroupBy    string
	TimeIndex  string
	WindowSize time.Duration
	// Gap between consecutive cutoffs. Zero means WindowSize, the only supported mode.
	Gap time.Duration
	// DropEmpty skips windows in which no row falls.
	DropEmpty bool
}

// DefaultOptions returns options with DropEmpty set.
func DefaultOptions() Options {
	return Options{DropEmpty: true}
}

// Label groups f by opts.GroupBy and, within each group, cuts the time axis into
// left-closed windows of opts.WindowSize anchored at the group's first timestamp.
// fn is invoked once per window. Rows with a missing timestamp or group key are ignored.
//
// Rows of the result are ordered by group key, then cutoff time.
func Label(f *frame.Frame, fn LabelFunc, opts Options) (*frame.Frame, error) {
	if opts.WindowSize <= 0 {
		return nil, fmt.Errorf("%w: window size must be positive, got %s", apperrors.ErrInvalidWindow, opts.WindowSize)
	}
	if opts.Gap != 0 && opts.Gap != opts.WindowSize {
		return nil, fmt.Errorf("%w: gap %s differs from window size %s", apperrors.ErrNotImplemented, opts.Gap, opts.WindowSize)
	}
	groupSeries, ok := f.Column(opts.GroupBy)
	if !ok {
		return nil, fmt.Errorf("%w: group-by column %q", apperrors.ErrUnknownColumn, opts.GroupBy)
	}
	times, err := timeColumn(f, opts.TimeIndex)
	if err != nil {
		return nil, err
	}

	present := f.Filter(func(row int) bool { return !times.IsMissing(row) })
	sorted, err := present.SortBy(opts.TimeIndex)
	if err != nil {
		return nil, err
	}
	times, _ = sorted.Column(opts.TimeIndex)
	groups, err := sorted.GroupBy(opts.GroupBy)
	if err != nil {
		return nil, err
	}

	var keys, cutoffs, targets []any
	for _, g := range groups {
		start := times.Value(g.Rows[0]).(time.Time)
		windows := bucket(times, g.Rows, start, opts.WindowSize)
		last := windows[len(windows)-1].index
		next := 0
		for k := 0; k <= last; k++ {
			var rows []int
			if next < len(windows) && windows[next].index == k {
				rows = windows[next].rows
				next++
			}
			if len(rows) == 0 && opts.DropEmpty {
				continue
			}
			cutoff := start.Add(time.Duration(k) * opts.WindowSize)
			label, err := fn(sorted.Take(rows))
			if err != nil {
				return nil, fmt.Errorf("label %s=%v at %s: %w", opts.GroupBy, g.Key, cutoff.Format(time.RFC3339), err)
			}
			keys = append(keys, g.Key)
			cutoffs = append(cutoffs, cutoff)
			targets = append(targets, label)
		}
	}

	return frame.New(
		frame.NewSeries(opts.GroupBy, groupSeries.DType(), keys),
		frame.NewSeries(CutoffTimeColumn, frame.Datetime, cutoffs),
		frame.FromValues(TargetColumn, targets),
	)
}

type window struct {
	index int
	rows  []int
}

// bucket assigns time-sorted rows to consecutive windows, returning non-empty windows in order.
func bucket(times *frame.Series, rows []int, start time.Time, size time.Duration) []window {
	var out []window
	for _, r := range rows {
		k := int(times.Value(r).(time.Time).Sub(start) / size)
		if len(out) == 0 || out[len(out)-1].index != k {
			out = append(out, window{index: k})
		}
		out[len(out)-1].rows = append(out[len(out)-1].rows, r)
	}
	return out
}

// timeColumn returns the time index, accepting a non-datetime dtype only when every present
// value already is a timestamp.
func timeColumn(f *frame.Frame, name string) (*frame.Series, error) {
	s, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q not in frame", apperrors.ErrInvalidTimeIndex, name)
	}
	if s.DType() == frame.Datetime {
		return s, nil
	}
	for i := 0; i < s.Len(); i++ {
		if s.IsMissing(i) {
			continue
		}
		if _, ok := s.Value(i).(time.Time); !ok {
			return nil, fmt.Errorf("%w: column %q has dtype %s", apperrors.ErrInvalidTimeIndex, name, s.DType())
		}
	}
	return s.WithDType(frame.Datetime), nil
}
