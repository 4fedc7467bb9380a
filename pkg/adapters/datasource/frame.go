package datasource

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/metadata"
)

// BuildFrame turns row-major driver output into a frame. Column dtypes are inferred from the
// values; with a schema, columns are then coerced to their ML types.
func BuildFrame(columns []string, rows [][]any, schema *metadata.SingleTable) (*frame.Frame, error) {
	series := make([]*frame.Series, len(columns))
	for j, name := range columns {
		values := make([]any, len(rows))
		for i, row := range rows {
			if len(row) != len(columns) {
				return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(columns))
			}
			values[i] = row[j]
		}
		series[j] = frame.FromValues(name, values)
	}
	f, err := frame.New(series...)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return f, nil
	}
	return schema.CoerceFrame(f)
}

// ConfigInt reads an int from a config map holding either JSON numbers or Go ints.
func ConfigInt(config map[string]any, key string, def int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
