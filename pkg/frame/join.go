package frame

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
)

// LeftJoin appends the columns of right to left, matching left[leftKey] against
// right[rightKey]. Every left row is kept exactly once; rows without a match get missing
// values. right[rightKey] must be unique (one-to-many from right to left), and column names
// of the two frames must not collide.
func LeftJoin(left, right *Frame, leftKey, rightKey string) (*Frame, error) {
	lk, err := left.column(leftKey)
	if err != nil {
		return nil, err
	}
	rk, err := right.column(rightKey)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string]int, right.Len())
	for i, v := range rk.values {
		if IsMissing(v) {
			continue
		}
		k := keyString(v)
		if _, dup := lookup[k]; dup {
			return nil, fmt.Errorf("%w: key %v repeats in %q", apperrors.ErrUnsupportedCardinality, v, rightKey)
		}
		lookup[k] = i
	}

	matches := make([]int, left.Len())
	for i, v := range lk.values {
		matches[i] = -1
		if IsMissing(v) {
			continue
		}
		if j, ok := lookup[keyString(v)]; ok {
			matches[i] = j
		}
	}

	cols := left.Series()
	for _, s := range right.columns {
		if left.HasColumn(s.Name()) {
			return nil, fmt.Errorf("column %q exists on both sides of the join", s.Name())
		}
		values := make([]any, len(matches))
		for i, j := range matches {
			if j >= 0 {
				values[i] = s.values[j]
			}
		}
		cols = append(cols, &Series{name: s.name, dtype: s.dtype, values: values})
	}
	return New(cols...)
}
