package metadata

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/models"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
)

// Schema is a parsed schema document. Exactly one of Single and Multi is set.
type Schema struct {
	Single *SingleTable
	Multi  *MultiTable
}

// legacySupertypes maps the type names of the legacy column-descriptor form to ML types.
var legacySupertypes = map[string]func() mltypes.MLType{
	"integer":     func() mltypes.MLType { return mltypes.New(mltypes.Integer) },
	"int":         func() mltypes.MLType { return mltypes.New(mltypes.Integer) },
	"float":       func() mltypes.MLType { return mltypes.New(mltypes.Double) },
	"numeric":     func() mltypes.MLType { return mltypes.New(mltypes.Double) },
	"boolean":     func() mltypes.MLType { return mltypes.New(mltypes.Boolean) },
	"bool":        func() mltypes.MLType { return mltypes.New(mltypes.Boolean) },
	"text":        func() mltypes.MLType { return mltypes.New(mltypes.NaturalLanguage) },
	"datetime":    func() mltypes.MLType { return mltypes.New(mltypes.Datetime) },
	"identifier":  func() mltypes.MLType { return mltypes.New(mltypes.Categorical, mltypes.TagIndex) },
	"categorical": func() mltypes.MLType { return mltypes.New(mltypes.Categorical) },
}

// ReadFile parses a schema document from disk. YAML and JSON are both accepted.
func ReadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return Parse(data)
}

// Parse reads either a single-table document
//
//	columns: {id: [Categorical, [index]], amount: Double}
//	primary_key: id
//	time_index: date
//
// or a multi-table document with top-level "tables" and "relationships" keys.
// The columns entry may also be a legacy list of {name, type, subtype} descriptors.
func Parse(data []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDocument, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty schema document", apperrors.ErrInvalidDocument)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nodeError(root, "schema document must be a mapping")
	}
	if tables := mappingValue(root, "tables"); tables != nil {
		multi, err := parseMultiTable(tables, mappingValue(root, "relationships"))
		if err != nil {
			return nil, err
		}
		return &Schema{Multi: multi}, nil
	}
	single, err := parseSingleTable(root)
	if err != nil {
		return nil, err
	}
	return &Schema{Single: single}, nil
}

func parseMultiTable(tables, relationships *yaml.Node) (*MultiTable, error) {
	if tables.Kind != yaml.MappingNode {
		return nil, nodeError(tables, "tables must be a mapping of table name to schema")
	}
	m := NewMultiTable()
	for i := 0; i+1 < len(tables.Content); i += 2 {
		name := tables.Content[i].Value
		t, err := parseSingleTable(tables.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		if err := m.AddTable(name, t); err != nil {
			return nil, err
		}
	}
	if relationships == nil {
		return m, nil
	}
	if relationships.Kind != yaml.SequenceNode {
		return nil, nodeError(relationships, "relationships must be a list")
	}
	for _, n := range relationships.Content {
		r, err := parseRelationship(n)
		if err != nil {
			return nil, err
		}
		if err := m.AddRelationship(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// parseRelationship accepts a 4-item list or a mapping with named keys.
func parseRelationship(n *yaml.Node) (Relationship, error) {
	var r Relationship
	switch n.Kind {
	case yaml.SequenceNode:
		var parts []string
		if err := n.Decode(&parts); err != nil || len(parts) != 4 {
			return r, nodeError(n, "relationship must be [parent_table, parent_key, child_table, child_key]")
		}
		r = Relationship{ParentTable: parts[0], ParentKey: parts[1], ChildTable: parts[2], ChildKey: parts[3]}
	case yaml.MappingNode:
		if err := n.Decode(&r); err != nil {
			return r, nodeError(n, err.Error())
		}
	default:
		return r, nodeError(n, "relationship must be a list or mapping")
	}
	return r, nil
}

func parseSingleTable(n *yaml.Node) (*SingleTable, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nodeError(n, "table schema must be a mapping")
	}
	colsNode := mappingValue(n, "columns")
	if colsNode == nil {
		return nil, nodeError(n, "missing columns")
	}
	var columns []Column
	var err error
	switch colsNode.Kind {
	case yaml.MappingNode:
		columns, err = parseColumnMapping(colsNode)
	case yaml.SequenceNode:
		columns, err = parseLegacyColumns(colsNode)
	default:
		err = nodeError(colsNode, "columns must be a mapping or a list")
	}
	if err != nil {
		return nil, err
	}
	return NewSingleTable(columns, scalarValue(n, "primary_key"), scalarValue(n, "time_index"))
}

// parseColumnMapping keeps the document's column order.
func parseColumnMapping(n *yaml.Node) ([]Column, error) {
	columns := make([]Column, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		t, err := parseTypeLiteral(n.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		columns = append(columns, Column{Name: name, Type: t})
	}
	return columns, nil
}

// parseTypeLiteral accepts "Name", [Name, [tags...]] and {type: Name, tags: [...]}.
func parseTypeLiteral(n *yaml.Node) (mltypes.MLType, error) {
	var name string
	var tags []string
	switch n.Kind {
	case yaml.ScalarNode:
		name = n.Value
	case yaml.SequenceNode:
		if len(n.Content) == 0 || n.Content[0].Kind != yaml.ScalarNode {
			return mltypes.MLType{}, nodeError(n, "type literal must start with a logical type name")
		}
		name = n.Content[0].Value
		for _, extra := range n.Content[1:] {
			switch extra.Kind {
			case yaml.ScalarNode:
				tags = append(tags, extra.Value)
			case yaml.SequenceNode:
				var more []string
				if err := extra.Decode(&more); err != nil {
					return mltypes.MLType{}, nodeError(extra, "tags must be strings")
				}
				tags = append(tags, more...)
			default:
				return mltypes.MLType{}, nodeError(extra, "tags must be a list")
			}
		}
	case yaml.MappingNode:
		var lit struct {
			Type        string   `yaml:"type"`
			LogicalType string   `yaml:"logical_type"`
			Tags        []string `yaml:"tags"`
		}
		if err := n.Decode(&lit); err != nil {
			return mltypes.MLType{}, nodeError(n, err.Error())
		}
		name = lit.Type
		if name == "" {
			name = lit.LogicalType
		}
		tags = lit.Tags
	default:
		return mltypes.MLType{}, nodeError(n, "unsupported type literal")
	}
	logical, err := mltypes.LookupLogicalType(name)
	if err != nil {
		return mltypes.MLType{}, err
	}
	return mltypes.New(logical, tags...), nil
}

func parseLegacyColumns(n *yaml.Node) ([]Column, error) {
	var descriptors []struct {
		Name    string `yaml:"name"`
		Type    string `yaml:"type"`
		Subtype string `yaml:"subtype"`
	}
	if err := n.Decode(&descriptors); err != nil {
		return nil, nodeError(n, err.Error())
	}
	columns := make([]Column, 0, len(descriptors))
	for _, d := range descriptors {
		t, err := legacyType(d.Type, d.Subtype)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", d.Name, err)
		}
		columns = append(columns, Column{Name: d.Name, Type: t})
	}
	return columns, nil
}

// legacyType resolves the subtype first, then the type, then falls back to logical type names.
func legacyType(typ, subtype string) (mltypes.MLType, error) {
	for _, name := range []string{subtype, typ} {
		if ctor, ok := legacySupertypes[strings.ToLower(strings.TrimSpace(name))]; ok {
			return ctor(), nil
		}
	}
	logical, err := mltypes.LookupLogicalType(typ)
	if err != nil {
		return mltypes.MLType{}, err
	}
	return mltypes.New(logical), nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func scalarValue(n *yaml.Node, key string) string {
	v := mappingValue(n, key)
	if v == nil || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return ""
	}
	return v.Value
}

func nodeError(n *yaml.Node, msg string) error {
	return fmt.Errorf("%w: line %d: %s", apperrors.ErrInvalidDocument, n.Line, msg)
}

// Document converts the schema to its portable form.
func (m *SingleTable) Document() models.MetadataDocument {
	doc := models.MetadataDocument{
		Columns:    make([]models.ColumnDocument, 0, len(m.columns)),
		PrimaryKey: m.primaryKey,
		TimeIndex:  m.timeIndex,
	}
	for _, c := range m.columns {
		doc.Columns = append(doc.Columns, models.ColumnDocument{
			Name:        c.Name,
			LogicalType: c.Type.Logical.Name(),
			Tags:        c.Type.UserTags().Sorted(),
		})
	}
	return doc
}

// FromDocument rebuilds a schema from its portable form.
func FromDocument(doc models.MetadataDocument) (*SingleTable, error) {
	columns := make([]Column, 0, len(doc.Columns))
	for _, c := range doc.Columns {
		logical, err := mltypes.LookupLogicalType(c.LogicalType)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		columns = append(columns, Column{Name: c.Name, Type: mltypes.New(logical, c.Tags...)})
	}
	return NewSingleTable(columns, doc.PrimaryKey, doc.TimeIndex)
}
