// Package frame is a small column-oriented table used as the borrowed input of the
// problem pipeline. Frames and series are immutable: every operation returns a new value
// and never mutates its receiver.
package frame

import (
	"fmt"
	"slices"
	"sort"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
)

// Frame is an ordered set of equally long series.
type Frame struct {
	columns []*Series
	index   map[string]int
	nrows   int
}

// New builds a frame from series of equal length with unique names.
func New(series ...*Series) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(series))}
	for i, s := range series {
		if _, dup := f.index[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate column %q", s.Name())
		}
		if i == 0 {
			f.nrows = s.Len()
		} else if s.Len() != f.nrows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", s.Name(), s.Len(), f.nrows)
		}
		f.index[s.Name()] = i
		f.columns = append(f.columns, s)
	}
	return f, nil
}

func (f *Frame) Len() int { return f.nrows }

// Columns returns column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.columns))
	for i, s := range f.columns {
		names[i] = s.Name()
	}
	return names
}

// Column returns the series with the given name.
func (f *Frame) Column(name string) (*Series, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Series returns the columns in order.
func (f *Frame) Series() []*Series {
	return slices.Clone(f.columns)
}

func (f *Frame) column(name string) (*Series, error) {
	s, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownColumn, name)
	}
	return s, nil
}

// Take returns a frame with the rows at idx, in order.
func (f *Frame) Take(idx []int) *Frame {
	cols := make([]*Series, len(f.columns))
	for i, s := range f.columns {
		cols[i] = s.Take(idx)
	}
	return &Frame{columns: cols, index: f.index, nrows: len(idx)}
}

// Filter returns the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	idx := make([]int, 0, f.nrows)
	for i := 0; i < f.nrows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// SortBy returns the frame stably sorted ascending by the named column, missing last.
func (f *Frame) SortBy(name string) (*Frame, error) {
	s, err := f.column(name)
	if err != nil {
		return nil, err
	}
	idx := make([]int, f.nrows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return Compare(s.values[idx[a]], s.values[idx[b]]) < 0
	})
	return f.Take(idx), nil
}

// WithColumn returns a frame with s appended, or replacing the column of the same name.
func (f *Frame) WithColumn(s *Series) (*Frame, error) {
	if len(f.columns) > 0 && s.Len() != f.nrows {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", s.Name(), s.Len(), f.nrows)
	}
	cols := f.Series()
	if i, ok := f.index[s.Name()]; ok {
		cols[i] = s
	} else {
		cols = append(cols, s)
	}
	return New(cols...)
}

// Drop returns the frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	cols := make([]*Series, 0, len(f.columns))
	for _, s := range f.columns {
		if !slices.Contains(names, s.Name()) {
			cols = append(cols, s)
		}
	}
	out, _ := New(cols...)
	if len(cols) == 0 {
		out.nrows = f.nrows
	}
	return out
}

// Select returns the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Series, 0, len(names))
	for _, name := range names {
		s, err := f.column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, s)
	}
	return New(cols...)
}

// Row returns the i-th row keyed by column name.
func (f *Frame) Row(i int) map[string]any {
	row := make(map[string]any, len(f.columns))
	for _, s := range f.columns {
		row[s.Name()] = s.values[i]
	}
	return row
}

// Equal reports whether both frames have the same columns in the same order with equal values.
func (f *Frame) Equal(o *Frame) bool {
	if f.nrows != o.nrows || len(f.columns) != len(o.columns) {
		return false
	}
	for i := range f.columns {
		if !f.columns[i].Equal(o.columns[i]) {
			return false
		}
	}
	return true
}

// Group is the set of row positions sharing one key value.
type Group struct {
	Key  any
	Rows []int
}

// GroupBy partitions rows by the named column. Groups are ordered by ascending key and
// rows keep their frame order. Rows with a missing key are dropped.
func (f *Frame) GroupBy(name string) ([]Group, error) {
	s, err := f.column(name)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var groups []Group
	for i, v := range s.values {
		if IsMissing(v) {
			continue
		}
		k := keyString(v)
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, Group{Key: v})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	slices.SortStableFunc(groups, func(a, b Group) int {
		return Compare(a.Key, b.Key)
	})
	return groups, nil
}
