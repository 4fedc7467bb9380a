package problem

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
	"github.com/ekaya-inc/ekaya-trane/pkg/models"
	"github.com/ekaya-inc/ekaya-trane/pkg/ops"
)

// Document converts the problem to its portable form.
func (p *Problem) Document() (models.ProblemDocument, error) {
	doc := models.ProblemDocument{
		ID:          p.ID().String(),
		WindowSize:  p.WindowSize.String(),
		Metadata:    p.Metadata.Document(),
		Reasoning:   p.Reasoning,
		ProblemType: p.ProblemType(),
		Description: p.Description(),
	}
	if p.EntityColumn != "" {
		entity := p.EntityColumn
		doc.EntityColumn = &entity
	}
	for _, op := range p.Operations() {
		od := models.OperationDocument{
			Category:   string(op.Category()),
			Class:      op.Name(),
			Parameters: make(map[string]json.RawMessage),
		}
		if op.IsBound() {
			column := op.ColumnName()
			od.Column = &column
		}
		for _, param := range op.RequiredParameters() {
			v, ok := op.Parameter(param.Name)
			if !ok {
				od.Parameters[param.Name] = json.RawMessage("null")
				continue
			}
			raw, err := json.Marshal(v)
			if err != nil {
				return models.ProblemDocument{}, fmt.Errorf("encode %s.%s: %w", op.Name(), param.Name, err)
			}
			od.Parameters[param.Name] = raw
		}
		doc.Operations = append(doc.Operations, od)
	}
	return doc, nil
}

// MarshalJSON encodes the problem as its document.
func (p *Problem) MarshalJSON() ([]byte, error) {
	doc, err := p.Document()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Parse decodes a JSON problem document.
func Parse(data []byte) (*Problem, error) {
	var doc models.ProblemDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDocument, err)
	}
	return FromDocument(doc)
}

// FromDocument rebuilds a problem. Operator classes are resolved through the ops registry;
// informational fields (id, description, problem_type) are ignored.
func FromDocument(doc models.ProblemDocument) (*Problem, error) {
	md, err := metadata.FromDocument(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", apperrors.ErrInvalidDocument, err)
	}
	window, err := ParseWindow(doc.WindowSize)
	if err != nil {
		return nil, err
	}
	operations := make([]*ops.Op, 0, len(doc.Operations))
	for i, od := range doc.Operations {
		op, err := operationFromDocument(od)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		operations = append(operations, op)
	}
	entity := ""
	if doc.EntityColumn != nil {
		entity = *doc.EntityColumn
	}
	p, err := New(md, operations, entity, window)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidDocument, err)
	}
	p.Reasoning = doc.Reasoning
	return p, nil
}

func operationFromDocument(od models.OperationDocument) (*ops.Op, error) {
	class, err := ops.Lookup(od.Class)
	if err != nil {
		return nil, err
	}
	if od.Category != "" && !strings.EqualFold(od.Category, string(class.Category)) {
		return nil, fmt.Errorf("%w: %s is a %s, document says %s", apperrors.ErrInvalidDocument, class.Name, class.Category, od.Category)
	}
	column := ""
	if od.Column != nil {
		column = *od.Column
	}
	op := class.New(column)
	values := make(map[string]any, len(od.Parameters))
	for _, param := range op.RequiredParameters() {
		raw, ok := od.Parameters[param.Name]
		if !ok || jsonutil.IsNull(raw) {
			continue
		}
		if param.Kind == ops.ParamNumeric {
			f, err := jsonutil.FlexibleFloat(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %w", apperrors.ErrInvalidParameter, class.Name, param.Name, err)
			}
			values[param.Name] = f
			continue
		}
		values[param.Name] = jsonutil.FlexibleValue(raw)
	}
	if err := op.SetParameters(values); err != nil {
		return nil, err
	}
	return op, nil
}

var humanWindow = regexp.MustCompile(`^(\d+)\s*(w|weeks?|d|days?|h|hours?|m|minutes?|s|seconds?)$`)

// ParseWindow accepts Go durations ("48h") and day or week counts ("2d", "2 days", "1 week").
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("%w: %q is not positive", apperrors.ErrInvalidWindow, s)
		}
		return d, nil
	}
	m := humanWindow.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidWindow, s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidWindow, s)
	}
	unit := map[byte]time.Duration{
		'w': 7 * 24 * time.Hour,
		'd': 24 * time.Hour,
		'h': time.Hour,
		'm': time.Minute,
		's': time.Second,
	}[m[2][0]]
	return time.Duration(n) * unit, nil
}
