package jsonschema

import (
	"encoding/json"
	"testing"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() *emit.Input {
	return &emit.Input{
		Module: "classify",
		Source: "classify.prompt.md",
		Model:  "gpt-4o-mini",
		Meta:   emit.Meta{Version: "0.1.0"},
		Inputs: ir.Schema{
			{Name: "text", Type: ir.MustParseType("string")},
			{Name: "labels", Type: ir.MustParseType("enum(spam, ham)[]")},
			{Name: "hint", Optional: true, Type: ir.ObjectOf(ir.Schema{
				{Name: "weight", Type: ir.MustParseType("number")},
			})},
		},
		Outputs: ir.Schema{
			{Name: "label", Type: ir.MustParseType("enum(spam, ham)")},
			{Name: "confident", Type: ir.MustParseType("boolean")},
		},
	}
}

func TestEmitter_Emit(t *testing.T) {
	e := New()
	files, err := e.Emit(sampleInput())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "classify.schema.json", files[0].Path)
	assert.Equal(t, e.Outputs("classify"), []string{files[0].Path})

	var doc map[string]any
	require.NoError(t, json.Unmarshal(files[0].Content, &doc))
	assert.Equal(t, Draft, doc["$schema"])
	assert.Equal(t, false, doc["additionalProperties"])

	inputs := doc["properties"].(map[string]any)["inputs"].(map[string]any)
	assert.Equal(t, []any{"text", "labels"}, inputs["required"])

	labels := inputs["properties"].(map[string]any)["labels"].(map[string]any)
	assert.Equal(t, "array", labels["type"])
	assert.Equal(t, []any{"spam", "ham"}, labels["items"].(map[string]any)["enum"])
}

func TestDocument_Validates(t *testing.T) {
	resolved, err := Document(sampleInput()).Resolve(nil)
	require.NoError(t, err)

	valid := map[string]any{
		"inputs": map[string]any{
			"text":   "buy now",
			"labels": []any{"spam"},
			"hint":   map[string]any{"weight": 0.5},
		},
		"outputs": map[string]any{"label": "spam", "confident": true},
	}
	assert.NoError(t, resolved.Validate(valid))

	tests := []struct {
		name   string
		inputs map[string]any
	}{
		{"missing required", map[string]any{"labels": []any{}}},
		{"bad enum", map[string]any{"text": "x", "labels": []any{"eggs"}}},
		{"extra field", map[string]any{"text": "x", "labels": []any{}, "other": 1}},
		{"wrong type", map[string]any{"text": 3, "labels": []any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, resolved.Validate(map[string]any{"inputs": tt.inputs}))
		})
	}
}

func TestForType(t *testing.T) {
	s := ForType(ir.MustParseType("number[][]"))
	assert.Equal(t, "array", s.Type)
	assert.Equal(t, "array", s.Items.Type)
	assert.Equal(t, "number", s.Items.Items.Type)

	empty := ForSchema(nil)
	assert.Equal(t, "object", empty.Type)
	assert.Empty(t, empty.Properties)
	assert.Nil(t, empty.Required)
}

func TestFinalize(t *testing.T) {
	files, err := New().Finalize([]string{"a"}, "")
	require.NoError(t, err)
	assert.Empty(t, files)
}
