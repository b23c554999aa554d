package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var personSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"name", "age"},
	"properties": map[string]interface{}{
		"name": map[string]interface{}{"type": "string", "minLength": 1},
		"age":  map[string]interface{}{"type": "integer", "minimum": 18, "maximum": 70},
		"kind": map[string]interface{}{"type": "string", "enum": []interface{}{"a", "b"}},
	},
}

func TestSchema_Validate(t *testing.T) {
	s := MustCompile(personSchema)

	tests := []struct {
		name      string
		doc       map[string]interface{}
		wantValid bool
		wantField string
		wantCode  string
	}{
		{"valid", map[string]interface{}{"name": "Asha", "age": 30}, true, "", ""},
		{"missing name", map[string]interface{}{"age": 30}, false, "name", "REQUIRED_FIELD_MISSING"},
		{"age too small", map[string]interface{}{"name": "A", "age": 12}, false, "age", "VALUE_TOO_SMALL"},
		{"age too large", map[string]interface{}{"name": "A", "age": 99}, false, "age", "VALUE_TOO_LARGE"},
		{"age wrong type", map[string]interface{}{"name": "A", "age": "thirty"}, false, "age", "INVALID_TYPE"},
		{"bad enum", map[string]interface{}{"name": "A", "age": 30, "kind": "z"}, false, "kind", "INVALID_VALUE"},
		{"empty name", map[string]interface{}{"name": "", "age": 30}, false, "name", "STRING_TOO_SHORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			if tt.wantValid {
				assert.Empty(t, res.Errors)
				return
			}
			require.NotEmpty(t, res.Errors)
			assert.True(t, res.HasErrors(tt.wantField), "%+v", res.Errors)
			assert.Equal(t, tt.wantCode, res.GetErrorsForField(tt.wantField)[0].Code)
		})
	}
}

func TestSchema_ErrorsAreSortedByField(t *testing.T) {
	s := MustCompile(personSchema)

	res, err := s.Validate(map[string]interface{}{"kind": "z"})
	require.NoError(t, err)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, []string{"age", "kind", "name"}, []string{res.Errors[0].Field, res.Errors[1].Field, res.Errors[2].Field})
	assert.Len(t, res.GetErrorMessages(), 3)
}

func TestValidateInput(t *testing.T) {
	res, err := ValidateInput(map[string]interface{}{"name": "A", "age": 40}, personSchema)
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestCompileJSON(t *testing.T) {
	s, err := CompileJSON(`{"type":"object","required":["id"]}`)
	require.NoError(t, err)

	res, err := s.Validate(map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("id"))

	_, err = CompileJSON(`{not json`)
	assert.Error(t, err)
}
