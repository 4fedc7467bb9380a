// Package metadata holds the structural description of a dataset: each column's ML type,
// primary keys, time indices and relationships between tables.
package metadata

import (
	"fmt"
	"slices"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
)

// Column pairs a column name with its ML type.
type Column struct {
	Name string
	Type mltypes.MLType
}

// SingleTable maps columns (in insertion order) to ML types, with an optional primary key
// and time index.
type SingleTable struct {
	columns    []Column
	index      map[string]int
	primaryKey string
	timeIndex  string
}

// NewSingleTable builds a schema. primaryKey and timeIndex may be empty; when set they must
// name a column and get the primary_key / time_index tag attached.
func NewSingleTable(columns []Column, primaryKey, timeIndex string) (*SingleTable, error) {
	m := &SingleTable{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if _, dup := m.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if c.Type.Logical == nil {
			return nil, fmt.Errorf("%w: column %q has no logical type", apperrors.ErrUnknownMLType, c.Name)
		}
		m.index[c.Name] = len(m.columns)
		m.columns = append(m.columns, c)
	}
	if primaryKey != "" {
		if err := m.SetPrimaryKey(primaryKey); err != nil {
			return nil, err
		}
	}
	if timeIndex != "" {
		if err := m.SetTimeIndex(timeIndex); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Columns returns column names in insertion order.
func (m *SingleTable) Columns() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnTypes returns the columns with their types, in insertion order.
func (m *SingleTable) ColumnTypes() []Column {
	return slices.Clone(m.columns)
}

// HasColumn reports whether the schema has the named column.
func (m *SingleTable) HasColumn(name string) bool {
	_, ok := m.index[name]
	return ok
}

// Type returns a column's ML type.
func (m *SingleTable) Type(name string) (mltypes.MLType, bool) {
	i, ok := m.index[name]
	if !ok {
		return mltypes.MLType{}, false
	}
	return m.columns[i].Type, true
}

// SetType sets a column's ML type, appending the column if it does not exist.
// Key tags of the primary key and time index are preserved.
func (m *SingleTable) SetType(name string, t mltypes.MLType) error {
	if t.Logical == nil {
		return fmt.Errorf("%w: column %q has no logical type", apperrors.ErrUnknownMLType, name)
	}
	if name == m.primaryKey {
		t = t.WithTags(mltypes.TagPrimaryKey)
	}
	if name == m.timeIndex {
		t = t.WithTags(mltypes.TagTimeIndex)
	}
	if i, ok := m.index[name]; ok {
		m.columns[i].Type = t
		return nil
	}
	m.index[name] = len(m.columns)
	m.columns = append(m.columns, Column{Name: name, Type: t})
	return nil
}

func (m *SingleTable) PrimaryKey() string { return m.primaryKey }
func (m *SingleTable) TimeIndex() string  { return m.timeIndex }

// SetPrimaryKey marks a column as the primary key and attaches the primary_key tag.
func (m *SingleTable) SetPrimaryKey(name string) error {
	return m.moveKeyTag(name, &m.primaryKey, mltypes.TagPrimaryKey)
}

// SetTimeIndex marks a column as the time index and attaches the time_index tag.
// A non-datetime time index is accepted here; the generator warns about it.
func (m *SingleTable) SetTimeIndex(name string) error {
	return m.moveKeyTag(name, &m.timeIndex, mltypes.TagTimeIndex)
}

func (m *SingleTable) moveKeyTag(name string, key *string, tag string) error {
	i, ok := m.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownColumn, name)
	}
	if prev, ok := m.index[*key]; ok && *key != name {
		m.columns[prev].Type = m.columns[prev].Type.WithoutTags(tag)
	}
	m.columns[i].Type = m.columns[i].Type.WithTags(tag)
	*key = name
	return nil
}

// TypeMap returns a fresh column -> ML type mapping.
func (m *SingleTable) TypeMap() map[string]mltypes.MLType {
	out := make(map[string]mltypes.MLType, len(m.columns))
	for _, c := range m.columns {
		out[c.Name] = c.Type
	}
	return out
}

// Clone returns a deep copy.
func (m *SingleTable) Clone() *SingleTable {
	out := &SingleTable{
		columns:    slices.Clone(m.columns),
		index:      make(map[string]int, len(m.index)),
		primaryKey: m.primaryKey,
		timeIndex:  m.timeIndex,
	}
	for k, v := range m.index {
		out.index[k] = v
	}
	return out
}

// Equal reports whether both schemas have the same columns in the same order with identical
// types and the same keys.
func (m *SingleTable) Equal(o *SingleTable) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.primaryKey != o.primaryKey || m.timeIndex != o.timeIndex || len(m.columns) != len(o.columns) {
		return false
	}
	for i := range m.columns {
		if m.columns[i].Name != o.columns[i].Name || !m.columns[i].Type.Identical(o.columns[i].Type) {
			return false
		}
	}
	return true
}

// CoerceFrame converts every schema column present in f to its backing representation.
// Columns of f unknown to the schema are kept as they are.
func (m *SingleTable) CoerceFrame(f *frame.Frame) (*frame.Frame, error) {
	out := f
	for _, c := range m.columns {
		s, ok := f.Column(c.Name)
		if !ok {
			continue
		}
		coerced, err := c.Type.Coerce(s)
		if err != nil {
			return nil, err
		}
		if out, err = out.WithColumn(coerced); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// InferSingleTable builds a schema from a frame, inferring each column's logical type.
func InferSingleTable(f *frame.Frame, primaryKey, timeIndex string, cfg mltypes.InferenceConfig) (*SingleTable, error) {
	columns := make([]Column, 0, len(f.Columns()))
	for _, s := range f.Series() {
		logical := mltypes.Infer(s, cfg)
		if s.Name() == timeIndex && logical != mltypes.Datetime && s.DType() == frame.Datetime {
			logical = mltypes.Datetime
		}
		columns = append(columns, Column{Name: s.Name(), Type: mltypes.New(logical)})
	}
	return NewSingleTable(columns, primaryKey, timeIndex)
}
