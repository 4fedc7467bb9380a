package mltypes

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
)

// Coerce converts a column to the backing storage representation of the logical type.
// Empty strings become missing values. The input series is left untouched.
func (t MLType) Coerce(s *frame.Series) (*frame.Series, error) {
	if t.Logical == nil || t.Logical == Any {
		return s, nil
	}
	dtype := t.Logical.dtype
	out := make([]any, s.Len())
	for i := 0; i < s.Len(); i++ {
		v := s.Value(i)
		if frame.IsMissing(v) {
			continue
		}
		if str, ok := v.(string); ok && strings.TrimSpace(str) == "" {
			continue
		}
		cv, err := coerceValue(v, dtype)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: cannot coerce %v to %s: %w", s.Name(), i, v, t.Logical.name, err)
		}
		out[i] = cv
	}
	return frame.NewSeries(s.Name(), dtype, out), nil
}

func coerceValue(v any, dtype frame.DType) (any, error) {
	switch dtype {
	case frame.Int64:
		if b, ok := v.(bool); ok {
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		}
		if n, ok := asInteger(v); ok {
			return n, nil
		}
		return nil, fmt.Errorf("not an integer")
	case frame.Float64:
		if f, ok := asFloat(v); ok {
			return f, nil
		}
		return nil, fmt.Errorf("not a number")
	case frame.Bool:
		return coerceBool(v)
	case frame.Datetime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			if ts, ok := ParseTime(x); ok {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("not a datetime")
	case frame.Category, frame.String:
		if str, ok := v.(string); ok {
			return str, nil
		}
		return frame.FormatValue(v), nil
	}
	return v, nil
}

func coerceBool(v any) (any, error) {
	switch x := frame.Normalize(v).(type) {
	case bool:
		return x, nil
	case int64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		}
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("not a boolean")
}
