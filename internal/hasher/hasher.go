// Package hasher computes the fingerprints the manifest compares between builds.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/YAOSGit/prompt-opm/internal/ir"
)

// HashContent returns the SHA-256 hex digest of text.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// HashSchema fingerprints an interface: field names, types and optionality of
// the inputs and outputs. Declaration order does not affect the digest.
func HashSchema(inputs, outputs ir.Schema) string {
	canonical := struct {
		Inputs  []canonicalField `json:"inputs"`
		Outputs []canonicalField `json:"outputs"`
	}{
		Inputs:  canonicalize(inputs),
		Outputs: canonicalize(outputs),
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		// Only plain strings, bools and slices are marshalled.
		panic(err)
	}
	return HashContent(string(data))
}

// HashOutputs fingerprints the output schema alone.
func HashOutputs(outputs ir.Schema) string {
	return HashSchema(nil, outputs)
}

type canonicalField struct {
	Name     string        `json:"name"`
	Optional bool          `json:"optional,omitempty"`
	Type     canonicalType `json:"type"`
}

type canonicalType struct {
	Kind   string           `json:"kind"`
	Scalar string           `json:"scalar,omitempty"`
	Elem   *canonicalType   `json:"elem,omitempty"`
	Values []string         `json:"values,omitempty"`
	Fields []canonicalField `json:"fields,omitempty"`
}

func canonicalize(s ir.Schema) []canonicalField {
	sorted := s.Sorted()
	out := make([]canonicalField, 0, len(sorted))
	for _, f := range sorted {
		out = append(out, canonicalField{
			Name:     f.Name,
			Optional: f.Optional,
			Type:     canonicalizeType(f.Type),
		})
	}
	return out
}

func canonicalizeType(t ir.Type) canonicalType {
	ct := canonicalType{Kind: t.Kind.String()}
	switch t.Kind {
	case ir.KindScalar:
		ct.Scalar = t.Scalar
	case ir.KindArray:
		if t.Elem != nil {
			elem := canonicalizeType(*t.Elem)
			ct.Elem = &elem
		}
	case ir.KindEnum:
		ct.Values = t.Values
	case ir.KindObject:
		ct.Fields = canonicalize(t.Fields)
	}
	return ct
}
