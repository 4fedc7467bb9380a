package metadata

import (
	"fmt"
	"slices"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
)

// Relationship links a child table's foreign key to a parent table's key.
type Relationship struct {
	ParentTable string `json:"parent_table" yaml:"parent_table"`
	ParentKey   string `json:"parent_key" yaml:"parent_key"`
	ChildTable  string `json:"child_table" yaml:"child_table"`
	ChildKey    string `json:"child_key" yaml:"child_key"`
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", r.ChildTable, r.ChildKey, r.ParentTable, r.ParentKey)
}

// MultiTable is a set of named single-table schemas plus the relationships between them.
type MultiTable struct {
	tables        map[string]*SingleTable
	order         []string
	relationships []Relationship
}

// NewMultiTable returns an empty multi-table schema.
func NewMultiTable() *MultiTable {
	return &MultiTable{tables: make(map[string]*SingleTable)}
}

// AddTable registers a table schema. Table names must be unique.
func (m *MultiTable) AddTable(name string, t *SingleTable) error {
	if name == "" {
		return fmt.Errorf("%w: empty table name", apperrors.ErrUnknownTable)
	}
	if _, exists := m.tables[name]; exists {
		return fmt.Errorf("duplicate table %q", name)
	}
	m.tables[name] = t
	m.order = append(m.order, name)
	return nil
}

// Table returns the schema of the named table.
func (m *MultiTable) Table(name string) (*SingleTable, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownTable, name)
	}
	return t, nil
}

// Tables returns table names in insertion order.
func (m *MultiTable) Tables() []string {
	return slices.Clone(m.order)
}

// Columns enumerates the columns of one table.
func (m *MultiTable) Columns(table string) ([]string, error) {
	t, err := m.Table(table)
	if err != nil {
		return nil, err
	}
	return t.Columns(), nil
}

// AddRelationship validates that both ends exist and tags the child key as a foreign key.
func (m *MultiTable) AddRelationship(r Relationship) error {
	parent, err := m.Table(r.ParentTable)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", apperrors.ErrInvalidRelationship, r, err)
	}
	child, err := m.Table(r.ChildTable)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", apperrors.ErrInvalidRelationship, r, err)
	}
	if !parent.HasColumn(r.ParentKey) {
		return fmt.Errorf("%w: %s: %w: %q", apperrors.ErrInvalidRelationship, r, apperrors.ErrUnknownColumn, r.ParentKey)
	}
	if !child.HasColumn(r.ChildKey) {
		return fmt.Errorf("%w: %s: %w: %q", apperrors.ErrInvalidRelationship, r, apperrors.ErrUnknownColumn, r.ChildKey)
	}
	if slices.Contains(m.relationships, r) {
		return nil
	}
	ct, _ := child.Type(r.ChildKey)
	if err := child.SetType(r.ChildKey, ct.WithTags(mltypes.TagForeignKey)); err != nil {
		return err
	}
	m.relationships = append(m.relationships, r)
	return nil
}

// Relationships returns all relationships in insertion order.
func (m *MultiTable) Relationships() []Relationship {
	return slices.Clone(m.relationships)
}

// ParentsOf returns the relationships in which table is the child, in insertion order.
func (m *MultiTable) ParentsOf(table string) []Relationship {
	var out []Relationship
	for _, r := range m.relationships {
		if r.ChildTable == table {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns a deep copy.
func (m *MultiTable) Clone() *MultiTable {
	out := NewMultiTable()
	for _, name := range m.order {
		out.tables[name] = m.tables[name].Clone()
		out.order = append(out.order, name)
	}
	out.relationships = slices.Clone(m.relationships)
	return out
}
