package generator

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
	"github.com/ekaya-inc/ekaya-trane/pkg/ops"
	"github.com/ekaya-inc/ekaya-trane/pkg/problem"
)

const day = 24 * time.Hour

// positiveFilter is a parameterless numeric filter defined outside the ops package.
var positiveFilter = &ops.Class{
	Name:     "PositiveFilterOp",
	Category: ops.CategoryFilter,
	InputOutputTypes: []ops.IOType{
		{Input: mltypes.Integer},
		{Input: mltypes.Double},
	},
	RequiredTags: []string{mltypes.TagNumeric},
	Describe:     func(o *ops.Op) string { return "with positive " + o.ColumnName() },
	Filter: func(o *ops.Op, f *frame.Frame) (*frame.Frame, error) {
		s, ok := f.Column(o.ColumnName())
		if !ok {
			return nil, apperrors.ErrUnknownColumn
		}
		return f.Filter(func(row int) bool {
			v, ok := frame.ToFloat(s.Value(row))
			return ok && v > 0
		}), nil
	},
}

func valuesSchema(t *testing.T) *metadata.SingleTable {
	t.Helper()
	columns := []metadata.Column{
		{Name: "id", Type: mltypes.New(mltypes.Categorical, mltypes.TagIndex)},
		{Name: "time", Type: mltypes.New(mltypes.Datetime)},
	}
	for i := 1; i <= 5; i++ {
		columns = append(columns, metadata.Column{Name: fmt.Sprintf("value_%d", i), Type: mltypes.New(mltypes.Double)})
	}
	md, err := metadata.NewSingleTable(columns, "", "time")
	require.NoError(t, err)
	return md
}

func standardOptions() Options {
	return Options{
		EntityColumn:      "id",
		WindowSize:        2 * day,
		FilterOps:         []*ops.Class{ops.AllFilter, ops.GreaterFilter, ops.LessFilter, positiveFilter},
		TransformationOps: []*ops.Class{ops.IdentityTransformation, ops.OrderByTransformation},
		AggregationOps:    []*ops.Class{ops.SumAggregation, ops.AvgAggregation, ops.MaxAggregation, ops.MinAggregation},
	}
}

func TestGenerate_EnumerationCount(t *testing.T) {
	g, err := New(valuesSchema(t), standardOptions(), zap.NewNop())
	require.NoError(t, err)

	problems := g.Problems()
	require.Len(t, problems, 640)

	first := problems[0]
	assert.Equal(t, "AllFilterOp", first.Filter.Name())
	assert.Equal(t, "IdentityOp", first.Transformation.Name())
	assert.Equal(t, "SumAggregationOp", first.Aggregation.Name())
	assert.Equal(t, "value_1", first.Aggregation.ColumnName())
}

func TestGenerate_NeverBindsStructuralColumns(t *testing.T) {
	md := valuesSchema(t)
	g, err := New(md, standardOptions(), zap.NewNop())
	require.NoError(t, err)

	for p := range g.Generate() {
		for _, op := range p.Operations() {
			assert.NotContains(t, []string{"id", "time"}, op.ColumnName(), p.String())
		}
		if p.Transformation.IsBound() {
			assert.Equal(t, p.Aggregation.ColumnName(), p.Transformation.ColumnName())
		}
		valid, _ := p.IsValid(md)
		assert.True(t, valid, p.String())
	}
}

// Every admissible binding of the default classes is either yielded or invalid.
func TestGenerate_Completeness(t *testing.T) {
	md, err := metadata.NewSingleTable([]metadata.Column{
		{Name: "id", Type: mltypes.New(mltypes.Integer, mltypes.TagIndex)},
		{Name: "date", Type: mltypes.New(mltypes.Datetime)},
		{Name: "amount", Type: mltypes.New(mltypes.Double)},
		{Name: "quantity", Type: mltypes.New(mltypes.Integer)},
		{Name: "card_type", Type: mltypes.New(mltypes.Categorical)},
		{Name: "approved", Type: mltypes.New(mltypes.Boolean)},
	}, "", "date")
	require.NoError(t, err)

	g, err := New(md, Options{EntityColumn: "id", WindowSize: day}, zap.NewNop())
	require.NoError(t, err)
	yielded := make(map[string]bool)
	for p := range g.Generate() {
		yielded[p.ID().String()] = true
	}

	columns := []string{"amount", "quantity", "card_type", "approved"}
	expected := 0
	for _, fc := range ops.DefaultFilters() {
		for _, tc := range ops.DefaultTransformations() {
			for _, ac := range ops.DefaultAggregations() {
				if ops.Restricts(fc, ac) {
					continue
				}
				for _, fcol := range bindings(fc, columns) {
					for _, acol := range bindings(ac, columns) {
						tcol := acol
						if tc.ColumnAgnostic {
							tcol = ""
						} else if acol == "" {
							continue
						}
						p, err := problem.New(md, []*ops.Op{fc.New(fcol), tc.New(tcol), ac.New(acol)}, "id", day)
						require.NoError(t, err)
						valid, _ := p.IsValid(md)
						assert.Equal(t, valid, yielded[p.ID().String()], p.String())
						if valid {
							expected++
						}
					}
				}
			}
		}
	}
	assert.Len(t, yielded, expected)
	assert.Positive(t, expected)
}

func TestGenerate_RestrictedPairsSkipped(t *testing.T) {
	g, err := New(valuesSchema(t), Options{
		EntityColumn:      "id",
		WindowSize:        day,
		FilterOps:         []*ops.Class{ops.AllFilter},
		TransformationOps: []*ops.Class{ops.IdentityTransformation},
		AggregationOps:    []*ops.Class{ops.ExistsAggregation, ops.CountAggregation},
	}, zap.NewNop())
	require.NoError(t, err)

	problems := g.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, "CountAggregationOp", problems[0].Aggregation.Name())
}

func TestGenerate_Deterministic(t *testing.T) {
	g, err := New(valuesSchema(t), standardOptions(), zap.NewNop())
	require.NoError(t, err)

	ids := func() []string {
		var out []string
		for p := range g.Generate() {
			out = append(out, p.ID().String())
		}
		return out
	}
	first := ids()
	assert.Equal(t, first, ids())

	// every problem is distinct
	sorted := slices.Clone(first)
	slices.Sort(sorted)
	assert.Len(t, slices.Compact(sorted), len(first))
}

func TestGenerate_StopsEarly(t *testing.T) {
	g, err := New(valuesSchema(t), standardOptions(), zap.NewNop())
	require.NoError(t, err)

	n := 0
	for range g.Generate() {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestGenerate_Thresholds(t *testing.T) {
	md, err := metadata.NewSingleTable([]metadata.Column{
		{Name: "id", Type: mltypes.New(mltypes.Integer, mltypes.TagIndex)},
		{Name: "date", Type: mltypes.New(mltypes.Datetime)},
		{Name: "amount", Type: mltypes.New(mltypes.Double)},
		{Name: "card_type", Type: mltypes.New(mltypes.Categorical)},
	}, "", "date")
	require.NoError(t, err)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]any, 8)
	ids := make([]any, 8)
	amounts := make([]any, 8)
	cards := make([]any, 8)
	for i := range dates {
		dates[i] = start.Add(time.Duration(i) * day)
		ids[i] = int64(i % 2)
		amounts[i] = float64(10 * (i + 1))
		cards[i] = "visa"
	}
	f, err := frame.New(
		frame.NewSeries("id", frame.Int64, ids),
		frame.NewSeries("date", frame.Datetime, dates),
		frame.NewSeries("amount", frame.Float64, amounts),
		frame.NewSeries("card_type", frame.Category, cards),
	)
	require.NoError(t, err)

	g, err := New(md, Options{
		EntityColumn:       "id",
		WindowSize:         2 * day,
		FilterOps:          []*ops.Class{ops.EqFilter, ops.GreaterFilter},
		TransformationOps:  []*ops.Class{ops.IdentityTransformation},
		AggregationOps:     []*ops.Class{ops.CountAggregation},
		GenerateThresholds: true,
		Frame:              f,
	}, zap.NewNop())
	require.NoError(t, err)

	problems := g.Problems()
	require.Len(t, problems, 2)

	eq, gt := problems[0], problems[1]
	assert.Equal(t, "EqFilterOp", eq.Filter.Name())
	assert.False(t, eq.HasParametersSet(), "a single-valued column has no threshold candidate")

	assert.Equal(t, "GreaterFilterOp", gt.Filter.Name())
	require.True(t, gt.HasParametersSet())
	threshold, _ := gt.Filter.Parameter(ops.ParamThreshold)
	assert.IsType(t, float64(0), threshold)
}

func TestNew_Errors(t *testing.T) {
	md := valuesSchema(t)

	_, err := New(md, Options{WindowSize: 0}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(md, Options{WindowSize: day, EntityColumn: "customer"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(md, Options{WindowSize: day, GenerateThresholds: true}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(md, Options{WindowSize: day, FilterOps: []*ops.Class{ops.CountAggregation}}, zap.NewNop())
	assert.Error(t, err)
}

const storeSchema = `
tables:
  countries:
    columns: {code: [Categorical, [index]], region: Categorical}
    primary_key: code
  customers:
    columns: {id: [Integer, [index]], country: Categorical, age: Integer}
    primary_key: id
  transactions:
    columns: {id: Integer, customer_id: Integer, date: Datetime, amount: Double}
    primary_key: id
    time_index: date
relationships:
  - [customers, id, transactions, customer_id]
  - [countries, code, customers, country]
`

func TestNewMultiTable(t *testing.T) {
	schema, err := metadata.Parse([]byte(storeSchema))
	require.NoError(t, err)

	g, err := NewMultiTable(schema.Multi, Options{
		TargetTable:       "transactions",
		EntityColumn:      "customer_id",
		WindowSize:        day,
		FilterOps:         []*ops.Class{ops.AllFilter},
		TransformationOps: []*ops.Class{ops.IdentityTransformation},
		AggregationOps:    []*ops.Class{ops.MajorityAggregation, ops.AvgAggregation},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, g.Schema().HasColumn("customers.countries.region"))

	var aggregated []string
	for p := range g.Generate() {
		aggregated = append(aggregated, p.Aggregation.Name()+":"+p.Aggregation.ColumnName())
	}
	assert.Contains(t, aggregated, "MajorityAggregationOp:customers.countries.region")
	assert.Contains(t, aggregated, "AvgAggregationOp:customers.age")
	assert.Contains(t, aggregated, "AvgAggregationOp:amount")
	assert.NotContains(t, aggregated, "AvgAggregationOp:customers.id")

	_, err = NewMultiTable(schema.Multi, Options{TargetTable: "stores", WindowSize: day}, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrUnknownTable)
}

func TestNewMultiTable_Cycle(t *testing.T) {
	schema, err := metadata.Parse([]byte(`
tables:
  a: {columns: {id: Integer, b_id: Integer}, primary_key: id}
  b: {columns: {id: Integer, a_id: Integer}, primary_key: id}
relationships:
  - [b, id, a, b_id]
  - [a, id, b, a_id]
`))
	require.NoError(t, err)
	_, err = NewMultiTable(schema.Multi, Options{TargetTable: "a", WindowSize: day}, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrCyclicSchema)
}
