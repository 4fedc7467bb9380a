// Package problem binds a filter, a transformation and an aggregation to a schema, an entity
// column and a window size. A Problem validates itself by propagating ML types through its
// operators, recommends filter thresholds from data, describes itself in English and
// materializes label tables.
package problem

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
	"github.com/ekaya-inc/ekaya-trane/pkg/models"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
	"github.com/ekaya-inc/ekaya-trane/pkg/ops"
)

// problemNamespace seeds name-based problem IDs.
var problemNamespace = uuid.MustParse("6f1c3f0e-2b7d-4c55-9a39-3e0d8f4b2a61")

// Problem is an ordered [filter, transformation, aggregation] pipeline. EntityColumn ""
// means a dataset-wide prediction.
type Problem struct {
	Filter         *ops.Op
	Transformation *ops.Op
	Aggregation    *ops.Op
	EntityColumn   string
	WindowSize     time.Duration
	Metadata       *metadata.SingleTable
	Reasoning      string
}

// New builds a problem from exactly three operators in filter, transformation, aggregation
// order. It does not validate types; call IsValid for that.
func New(md *metadata.SingleTable, operations []*ops.Op, entityColumn string, window time.Duration) (*Problem, error) {
	if md == nil {
		return nil, fmt.Errorf("problem needs a schema")
	}
	if len(operations) != len(ops.Categories) {
		return nil, fmt.Errorf("problem needs %d operators, got %d", len(ops.Categories), len(operations))
	}
	for i, op := range operations {
		if op == nil {
			return nil, fmt.Errorf("operator %d is nil", i)
		}
		if op.Category() != ops.Categories[i] {
			return nil, fmt.Errorf("operator %d must be a %s, got %s (%s)", i, ops.Categories[i], op.Name(), op.Category())
		}
	}
	return &Problem{
		Filter:         operations[0],
		Transformation: operations[1],
		Aggregation:    operations[2],
		EntityColumn:   entityColumn,
		WindowSize:     window,
		Metadata:       md,
	}, nil
}

// Operations returns the operators in pipeline order.
func (p *Problem) Operations() []*ops.Op {
	return []*ops.Op{p.Filter, p.Transformation, p.Aggregation}
}

// IsValid runs type propagation over md. It returns the final working type mapping when
// every operator validates, and false with a nil mapping otherwise. md is never modified.
func (p *Problem) IsValid(md *metadata.SingleTable) (bool, map[string]mltypes.MLType) {
	if md == nil {
		return false, nil
	}
	if p.EntityColumn != "" && !md.HasColumn(p.EntityColumn) {
		return false, nil
	}
	working := md.TypeMap()
	for _, op := range p.Operations() {
		if !op.IsBound() {
			if !op.ColumnAgnostic() {
				return false, nil
			}
			if out, ok := op.UnboundOutput(); ok && op.Class() != ops.CountAggregation {
				working[op.SyntheticColumn()] = out
			}
			continue
		}
		colType, ok := working[op.ColumnName()]
		if !ok {
			return false, nil
		}
		out, ok := op.Resolve(colType)
		if !ok {
			return false, nil
		}
		working[op.ColumnName()] = out
	}
	return true, working
}

// TargetType returns the ML type of the label, derived from the aggregation's output.
func (p *Problem) TargetType() (mltypes.MLType, bool) {
	valid, working := p.IsValid(p.Metadata)
	if !valid {
		return mltypes.MLType{}, false
	}
	if !p.Aggregation.IsBound() {
		return p.Aggregation.UnboundOutput()
	}
	t, ok := working[p.Aggregation.ColumnName()]
	return t, ok
}

// ProblemType is classification iff the label is Boolean.
func (p *Problem) ProblemType() models.ProblemType {
	if t, ok := p.TargetType(); ok && t.IsBoolean() {
		return models.ProblemTypeClassification
	}
	return models.ProblemTypeRegression
}

// RequiredParameters returns the filter's required parameters.
func (p *Problem) RequiredParameters() []ops.Parameter {
	return p.Filter.RequiredParameters()
}

// HasParametersSet reports whether the filter has every required parameter.
func (p *Problem) HasParametersSet() bool {
	return p.Filter.HasParametersSet()
}

// SetParameters stores the filter's parameters. It may be called once; use ResetParameters
// to replace values that are already set.
func (p *Problem) SetParameters(values map[string]any) error {
	if len(p.Filter.RequiredParameters()) > 0 && p.Filter.HasParametersSet() {
		return fmt.Errorf("%w: %s", apperrors.ErrParametersAlreadySet, p.Filter)
	}
	return p.Filter.SetParameters(values)
}

// ResetParameters replaces the filter's parameters.
func (p *Problem) ResetParameters(values map[string]any) error {
	next := p.Filter.Clone()
	next.ClearParameters()
	if err := next.SetParameters(values); err != nil {
		return err
	}
	p.Filter = next
	return nil
}

// Clone returns a copy whose operators can be parametrised independently. The schema is shared.
func (p *Problem) Clone() *Problem {
	cp := *p
	cp.Filter = p.Filter.Clone()
	cp.Transformation = p.Transformation.Clone()
	cp.Aggregation = p.Aggregation.Clone()
	return &cp
}

// Equal compares operators, entity column, window size and schema.
func (p *Problem) Equal(o *Problem) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Filter.Equal(o.Filter) &&
		p.Transformation.Equal(o.Transformation) &&
		p.Aggregation.Equal(o.Aggregation) &&
		p.EntityColumn == o.EntityColumn &&
		p.WindowSize == o.WindowSize &&
		p.Metadata.Equal(o.Metadata)
}

// signature is a canonical rendering of everything Equal compares.
func (p *Problem) signature() string {
	var b strings.Builder
	for _, op := range p.Operations() {
		b.WriteString(op.String())
		b.WriteByte('|')
	}
	fmt.Fprintf(&b, "entity=%s|window=%s|", p.EntityColumn, p.WindowSize)
	for _, c := range p.Metadata.ColumnTypes() {
		fmt.Fprintf(&b, "%s:%s;", c.Name, c.Type)
	}
	fmt.Fprintf(&b, "|pk=%s|ti=%s", p.Metadata.PrimaryKey(), p.Metadata.TimeIndex())
	return b.String()
}

// ID is a name-based UUID of the problem, equal for equal problems.
func (p *Problem) ID() uuid.UUID {
	return uuid.NewSHA1(problemNamespace, []byte(p.signature()))
}

func (p *Problem) String() string {
	return p.Filter.String() + " -> " + p.Transformation.String() + " -> " + p.Aggregation.String()
}
