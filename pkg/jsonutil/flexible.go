// Package jsonutil decodes loosely typed values from problem documents. Hand-edited and
// generated documents quote numbers or write thresholds as strings; these helpers accept both.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IsNull reports whether raw is absent or JSON null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

// FlexibleString renders a scalar as text. Numbers keep an integer form when they are whole.
// Returns "" for null.
func FlexibleString(raw json.RawMessage) string {
	if IsNull(raw) {
		return ""
	}
	switch v := FlexibleValue(raw).(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return string(raw)
}

// FlexibleFloat decodes a number, also accepting a quoted number such as "30".
func FlexibleFloat(raw json.RawMessage) (float64, error) {
	if IsNull(raw) {
		return 0, fmt.Errorf("expected a number, got null")
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("expected a number, got %s", string(raw))
}

// FlexibleValue decodes a scalar into string, float64 or bool. Null yields nil.
// Composite values are returned as their generic decoding.
func FlexibleValue(raw json.RawMessage) any {
	if IsNull(raw) {
		return nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err == nil {
		return generic
	}
	return string(raw)
}
