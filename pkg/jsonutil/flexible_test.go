package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleString(t *testing.T) {
	tests := map[string]struct {
		input json.RawMessage
		want  string
	}{
		"string":      {json.RawMessage(`"visa"`), "visa"},
		"whole float": {json.RawMessage(`30`), "30"},
		"fraction":    {json.RawMessage(`2.5`), "2.5"},
		"bool":        {json.RawMessage(`true`), "true"},
		"null":        {json.RawMessage(`null`), ""},
		"empty":       {nil, ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleString(tt.input))
		})
	}
}

func TestFlexibleFloat(t *testing.T) {
	f, err := FlexibleFloat(json.RawMessage(`30`))
	require.NoError(t, err)
	assert.Equal(t, 30.0, f)

	f, err = FlexibleFloat(json.RawMessage(`" 12.5 "`))
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)

	_, err = FlexibleFloat(json.RawMessage(`"high"`))
	assert.Error(t, err)
	_, err = FlexibleFloat(json.RawMessage(`null`))
	assert.Error(t, err)
}

func TestFlexibleValue(t *testing.T) {
	assert.Equal(t, "visa", FlexibleValue(json.RawMessage(`"visa"`)))
	assert.Equal(t, 4.0, FlexibleValue(json.RawMessage(`4`)))
	assert.Equal(t, false, FlexibleValue(json.RawMessage(`false`)))
	assert.Nil(t, FlexibleValue(json.RawMessage(` null `)))
	assert.Equal(t, []any{1.0, 2.0}, FlexibleValue(json.RawMessage(`[1,2]`)))
}
