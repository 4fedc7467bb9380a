package frame

import (
	"slices"
	"time"
)

// DType is the backing storage representation of a Series.
type DType string

const (
	Int64    DType = "int64"
	Float64  DType = "float64"
	Bool     DType = "bool"
	String   DType = "string"
	Category DType = "category"
	Datetime DType = "datetime"
	Object   DType = "object"
)

// Series is a named, immutable column of values. Missing entries are nil.
// Values are stored normalized (int64, float64, bool, string, time.Time).
type Series struct {
	name   string
	dtype  DType
	values []any
}

// NewSeries copies values into a new Series with the given dtype.
func NewSeries(name string, dtype DType, values []any) *Series {
	cp := make([]any, len(values))
	for i, v := range values {
		if IsMissing(v) {
			continue
		}
		cp[i] = Normalize(v)
	}
	return &Series{name: name, dtype: dtype, values: cp}
}

// FromValues builds a Series whose dtype is inferred from its values.
func FromValues(name string, values []any) *Series {
	return NewSeries(name, InferDType(values), values)
}

// InferDType picks a dtype from the non-missing values. Mixed ints and floats are Float64;
// any other mix is Object.
func InferDType(values []any) DType {
	var dtype DType
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		var d DType
		switch Normalize(v).(type) {
		case int64:
			d = Int64
		case float64:
			d = Float64
		case bool:
			d = Bool
		case string:
			d = String
		case time.Time:
			d = Datetime
		default:
			return Object
		}
		switch {
		case dtype == "":
			dtype = d
		case dtype == d:
		case (dtype == Int64 && d == Float64) || (dtype == Float64 && d == Int64):
			dtype = Float64
		default:
			return Object
		}
	}
	if dtype == "" {
		return Object
	}
	return dtype
}

func (s *Series) Name() string { return s.name }
func (s *Series) DType() DType { return s.dtype }
func (s *Series) Len() int     { return len(s.values) }

// Value returns the i-th value; nil when missing.
func (s *Series) Value(i int) any { return s.values[i] }

// IsMissing reports whether the i-th value is missing.
func (s *Series) IsMissing(i int) bool { return IsMissing(s.values[i]) }

// Values returns a copy of the underlying values.
func (s *Series) Values() []any {
	return slices.Clone(s.values)
}

// Rename returns a Series sharing the same values under a new name.
func (s *Series) Rename(name string) *Series {
	return &Series{name: name, dtype: s.dtype, values: s.values}
}

// WithDType returns a Series sharing the same values under a new dtype.
// The caller is responsible for the values matching the dtype.
func (s *Series) WithDType(dtype DType) *Series {
	return &Series{name: s.name, dtype: dtype, values: s.values}
}

// Take returns the rows at idx, in order.
func (s *Series) Take(idx []int) *Series {
	out := make([]any, len(idx))
	for i, j := range idx {
		out[i] = s.values[j]
	}
	return &Series{name: s.name, dtype: s.dtype, values: out}
}

// Floats returns the non-missing numeric values.
func (s *Series) Floats() []float64 {
	out := make([]float64, 0, len(s.values))
	for _, v := range s.values {
		if f, ok := ToFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// CountMissing returns the number of missing values.
func (s *Series) CountMissing() int {
	n := 0
	for _, v := range s.values {
		if IsMissing(v) {
			n++
		}
	}
	return n
}

// Unique returns the distinct non-missing values in first-appearance order.
func (s *Series) Unique() []any {
	seen := make(map[string]bool)
	var out []any
	for _, v := range s.values {
		if IsMissing(v) {
			continue
		}
		k := keyString(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value any
	Count int
}

// ValueCounts returns non-missing value frequencies, most frequent first.
// Ties are broken by ascending value so the result is deterministic.
func (s *Series) ValueCounts() []ValueCount {
	index := make(map[string]int)
	var counts []ValueCount
	for _, v := range s.values {
		if IsMissing(v) {
			continue
		}
		k := keyString(v)
		if i, ok := index[k]; ok {
			counts[i].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, ValueCount{Value: v, Count: 1})
	}
	slices.SortStableFunc(counts, func(a, b ValueCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return Compare(a.Value, b.Value)
	})
	return counts
}

// Equal reports whether two series have the same name, dtype and values.
func (s *Series) Equal(o *Series) bool {
	if s.name != o.name || s.dtype != o.dtype || len(s.values) != len(o.values) {
		return false
	}
	for i := range s.values {
		if !Equal(s.values[i], o.values[i]) {
			return false
		}
	}
	return true
}
