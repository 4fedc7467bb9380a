package mltypes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
)

func TestMLType_MandatoryTags(t *testing.T) {
	integer := New(Integer)
	assert.True(t, integer.IsNumeric())
	assert.False(t, integer.IsCategorical())
	assert.Equal(t, []string{TagNumeric}, integer.Tags().Sorted())

	cat := New(Categorical, TagForeignKey)
	assert.True(t, cat.IsCategorical())
	assert.Equal(t, []string{TagCategory, TagForeignKey}, cat.Tags().Sorted())
	assert.Equal(t, []string{TagForeignKey}, cat.UserTags().Sorted())
}

func TestMLType_TagAlgebra(t *testing.T) {
	ts := New(Datetime).WithTags(TagTimeIndex)
	assert.True(t, ts.HasTag(TagTimeIndex))
	assert.True(t, ts.IsDatetime())

	plain := ts.WithoutTags(TagTimeIndex)
	assert.False(t, plain.HasTag(TagTimeIndex))
	// receiver unchanged
	assert.True(t, ts.HasTag(TagTimeIndex))

	// mandatory tags cannot be removed
	assert.True(t, New(Double).WithoutTags(TagNumeric).IsNumeric())
}

func TestMLType_Equality(t *testing.T) {
	a := New(Integer, TagIndex)
	b := New(Integer)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Identical(b))
	assert.False(t, a.Equal(New(Double)))
	assert.Equal(t, "Integer[index,numeric]", a.String())
}

func TestCheckTypeCompatible(t *testing.T) {
	assert.True(t, CheckTypeCompatible(Any, New(Categorical)))
	assert.True(t, CheckTypeCompatible(Integer, New(Integer, TagForeignKey)))
	assert.False(t, CheckTypeCompatible(Integer, New(Double)))
}

func TestLookupLogicalType(t *testing.T) {
	tests := map[string]*LogicalType{
		"Integer":          Integer,
		"integer":          Integer,
		"natural_language": NaturalLanguage,
		"NaturalLanguage":  NaturalLanguage,
		"postal code":      PostalCode,
		"MLType":           Any,
	}
	for name, want := range tests {
		got, err := LookupLogicalType(name)
		require.NoError(t, err, name)
		assert.Same(t, want, got, name)
	}

	_, err := LookupLogicalType("Quaternion")
	assert.ErrorIs(t, err, apperrors.ErrUnknownMLType)
}

func TestInfer_CatalogOrder(t *testing.T) {
	cfg := DefaultInferenceConfig()
	tests := []struct {
		name   string
		values []any
		want   *LogicalType
	}{
		{"bool strings", []any{"yes", "no", "yes"}, Boolean},
		{"zero one", []any{"0", "1", "1", "0"}, Boolean},
		{"integers", []any{"1", "2", "3", "7"}, Integer},
		{"doubles", []any{"1.5", "2", "3.25"}, Double},
		{"dates", []any{"2024-01-01", "2024-01-02 10:00:00"}, Datetime},
		{"zips", []any{"02139", "10001-1234", "94105"}, PostalCode},
		{"not quite zips", []any{"02139", "10001-1234", "9021a"}, Unknown},
		{"emails", []any{"a@b.io", "c@d.com"}, EmailAddress},
		{"categories", []any{"visa", "visa", "amex", "visa"}, Categorical},
		{"sentences", []any{"the quick brown fox", "jumps over the lazy dog"}, NaturalLanguage},
		{"ids", []any{"a1", "b2", "c3"}, Unknown},
		{"all missing", []any{nil, nil}, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := frame.NewSeries("c", frame.String, tt.values)
			assert.Same(t, tt.want, Infer(s, cfg))
		})
	}
}

func TestInfer_NumericCategoricalThreshold(t *testing.T) {
	s := frame.NewSeries("rating", frame.Int64, []any{1, 2, 3, 1, 2, 3, 2})
	assert.Same(t, Integer, Infer(s, DefaultInferenceConfig()))

	cfg := DefaultInferenceConfig()
	cfg.NumericCategoricalThreshold = 5
	assert.Same(t, Categorical, Infer(s, cfg))
}

func TestCoerce(t *testing.T) {
	raw := frame.NewSeries("x", frame.String, []any{"1", "", "3"})

	ints, err := New(Integer).Coerce(raw)
	require.NoError(t, err)
	assert.Equal(t, frame.Int64, ints.DType())
	assert.Equal(t, []any{int64(1), nil, int64(3)}, ints.Values())

	cats, err := New(Categorical).Coerce(frame.NewSeries("x", frame.Int64, []any{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, frame.Category, cats.DType())
	assert.Equal(t, []any{"1", "2"}, cats.Values())

	dates, err := New(Datetime).Coerce(frame.NewSeries("d", frame.String, []any{"2024-01-02"}))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), dates.Value(0))

	bools, err := New(Boolean).Coerce(frame.NewSeries("b", frame.String, []any{"yes", "false", "1"}))
	require.NoError(t, err)
	assert.Equal(t, []any{true, false, true}, bools.Values())

	_, err = New(Integer).Coerce(frame.NewSeries("x", frame.String, []any{"1.5"}))
	assert.Error(t, err)

	// input untouched
	assert.Equal(t, []any{"1", "", "3"}, raw.Values())
}
