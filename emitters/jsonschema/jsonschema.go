// Package jsonschema emits one JSON Schema document per prompt describing its
// inputs and outputs.
package jsonschema

import (
	"encoding/json"
	"fmt"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
	"github.com/google/jsonschema-go/jsonschema"
)

// Draft is the JSON Schema dialect of generated documents.
const Draft = "https://json-schema.org/draft/2020-12/schema"

const fileSuffix = ".schema.json"

// Emitter renders the "jsonschema" target.
type Emitter struct{}

func New() *Emitter {
	return &Emitter{}
}

func (e *Emitter) Name() string {
	return "jsonschema"
}

func (e *Emitter) Outputs(module string) []string {
	return []string{module + fileSuffix}
}

func (e *Emitter) Emit(in *emit.Input) ([]emit.File, error) {
	content, err := json.MarshalIndent(Document(in), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema for %s: %w", in.Module, err)
	}
	content = append(content, '\n')
	return []emit.File{{Path: in.Module + fileSuffix, Content: content}}, nil
}

// Finalize writes nothing: every document stands alone.
func (e *Emitter) Finalize(modules []string, pkg string) ([]emit.File, error) {
	return nil, nil
}

// Document builds the schema of a prompt: an object with "inputs" and
// "outputs" properties.
func Document(in *emit.Input) *jsonschema.Schema {
	return &jsonschema.Schema{
		Schema:      Draft,
		Title:       in.Module,
		Description: fmt.Sprintf("%s %s (%s)", in.Source, in.Meta.Version, in.Model),
		Type:        "object",
		Properties: map[string]*jsonschema.Schema{
			"inputs":  ForSchema(in.Inputs),
			"outputs": ForSchema(in.Outputs),
		},
		PropertyOrder:        []string{"inputs", "outputs"},
		Required:             []string{"inputs"},
		AdditionalProperties: falseSchema(),
	}
}

// ForSchema maps a field list to a closed object schema; optional fields are
// left out of "required".
func ForSchema(s ir.Schema) *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:                 "object",
		Properties:           make(map[string]*jsonschema.Schema, len(s)),
		PropertyOrder:        s.Names(),
		AdditionalProperties: falseSchema(),
	}
	for _, f := range s {
		out.Properties[f.Name] = ForType(f.Type)
		if !f.Optional {
			out.Required = append(out.Required, f.Name)
		}
	}
	return out
}

// ForType maps one type descriptor.
func ForType(t ir.Type) *jsonschema.Schema {
	switch t.Kind {
	case ir.KindArray:
		return &jsonschema.Schema{Type: "array", Items: ForType(*t.Elem)}
	case ir.KindEnum:
		values := make([]any, len(t.Values))
		for i, v := range t.Values {
			values[i] = v
		}
		return &jsonschema.Schema{Type: "string", Enum: values}
	case ir.KindObject:
		return ForSchema(t.Fields)
	default:
		return &jsonschema.Schema{Type: t.Scalar}
	}
}

// falseSchema matches nothing and marshals as false.
func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}
