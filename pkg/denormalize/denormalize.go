// Package denormalize flattens a multi-table schema (and its frames) into one table rooted at
// a target table by following parent relationships outward.
package denormalize

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
)

// Separator joins a parent table name and one of its column names.
const Separator = "."

// order returns the tables reachable from target through parent relationships, each table
// after all of its parents. It fails on cycles.
func order(mt *metadata.MultiTable, target string) ([]string, error) {
	if _, err := mt.Table(target); err != nil {
		return nil, err
	}
	type frameEntry struct {
		table string
		exit  bool
	}
	const (
		unseen = iota
		visiting
		done
	)
	state := make(map[string]int)
	var out []string
	stack := []frameEntry{{table: target}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current.exit {
			state[current.table] = done
			out = append(out, current.table)
			continue
		}
		switch state[current.table] {
		case done:
			continue
		case visiting:
			return nil, fmt.Errorf("%w: %q is its own ancestor", apperrors.ErrCyclicSchema, current.table)
		}
		state[current.table] = visiting
		stack = append(stack, frameEntry{table: current.table, exit: true})

		parents := mt.ParentsOf(current.table)
		// push in reverse so parents are visited in relationship order
		for i := len(parents) - 1; i >= 0; i-- {
			p := parents[i].ParentTable
			switch state[p] {
			case visiting:
				return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrCyclicSchema, current.table, p)
			case unseen:
				stack = append(stack, frameEntry{table: p})
			}
		}
	}
	return out, nil
}

// Tables returns the tables target depends on, parents first and target last.
func Tables(mt *metadata.MultiTable, target string) ([]string, error) {
	return order(mt, target)
}

// Schema flattens the schema of target. Each parent column appears as
// "<parent>.<column>" with the parent's ML type; key and time-index tags of parent columns
// are dropped and the copied parent key is tagged as a foreign key. The result keeps the
// target's primary key and time index.
func Schema(mt *metadata.MultiTable, target string) (*metadata.SingleTable, error) {
	tables, err := order(mt, target)
	if err != nil {
		return nil, err
	}
	flat := make(map[string]*metadata.SingleTable, len(tables))
	for _, name := range tables {
		t, err := mt.Table(name)
		if err != nil {
			return nil, err
		}
		merged := t.Clone()
		for _, r := range mt.ParentsOf(name) {
			parent := flat[r.ParentTable]
			for _, c := range parent.ColumnTypes() {
				typ := c.Type.WithoutTags(mltypes.TagPrimaryKey, mltypes.TagTimeIndex)
				if c.Name == r.ParentKey {
					typ = typ.WithoutTags(mltypes.TagIndex).WithTags(mltypes.TagForeignKey)
				}
				col := r.ParentTable + Separator + c.Name
				if merged.HasColumn(col) {
					return nil, fmt.Errorf("flatten %s: column %q introduced twice", name, col)
				}
				if err := merged.SetType(col, typ); err != nil {
					return nil, err
				}
			}
		}
		flat[name] = merged
	}
	return flat[target], nil
}

// Frames flattens the frame of target by left-joining each parent (itself flattened) on the
// child's foreign key. Every child row is kept once; parent keys must be unique.
func Frames(mt *metadata.MultiTable, target string, frames map[string]*frame.Frame) (*frame.Frame, error) {
	tables, err := order(mt, target)
	if err != nil {
		return nil, err
	}
	flat := make(map[string]*frame.Frame, len(tables))
	for _, name := range tables {
		f, ok := frames[name]
		if !ok {
			return nil, fmt.Errorf("%w: no frame for table %q", apperrors.ErrUnknownTable, name)
		}
		for _, r := range mt.ParentsOf(name) {
			parent := prefixed(flat[r.ParentTable], r.ParentTable)
			joined, err := frame.LeftJoin(f, parent, r.ChildKey, r.ParentTable+Separator+r.ParentKey)
			if err != nil {
				return nil, fmt.Errorf("join %s: %w", r, err)
			}
			f = joined
		}
		flat[name] = f
	}
	return flat[target], nil
}

func prefixed(f *frame.Frame, table string) *frame.Frame {
	series := f.Series()
	for i, s := range series {
		series[i] = s.Rename(table + Separator + s.Name())
	}
	out, _ := frame.New(series...)
	return out
}
