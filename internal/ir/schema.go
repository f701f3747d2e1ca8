package ir

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrUnsupportedType is returned for a type descriptor the schema mapper cannot represent.
var ErrUnsupportedType = errors.New("unsupported type")

// TypeKind tags the variant held by a Type.
type TypeKind int

const (
	KindScalar TypeKind = iota
	KindArray
	KindEnum
	KindObject
)

func (k TypeKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindEnum:
		return "enum"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Scalar type names.
const (
	ScalarString  = "string"
	ScalarNumber  = "number"
	ScalarBoolean = "boolean"
)

// Type is a schema type descriptor: a scalar, an array of a type, an enum of
// string values, or an object of named fields.
type Type struct {
	Kind   TypeKind
	Scalar string   // KindScalar
	Elem   *Type    // KindArray
	Values []string // KindEnum, declaration order
	Fields Schema   // KindObject
}

// Field is one named entry of a schema.
type Field struct {
	Name     string
	Optional bool
	Type     Type
}

// Schema is an ordered list of fields, kept in declaration order.
type Schema []Field

var (
	enumRe  = regexp.MustCompile(`^enum\((.+)\)$`)
	arrayRe = regexp.MustCompile(`^(.+)\[\]$`)
)

// ParseType parses a textual type descriptor such as "string", "number[]" or "enum(a, b)".
func ParseType(desc string) (Type, error) {
	trimmed := strings.TrimSpace(desc)

	if m := arrayRe.FindStringSubmatch(trimmed); m != nil {
		elem, err := ParseType(m[1])
		if err != nil {
			return Type{}, err
		}
		return ArrayOf(elem), nil
	}

	if m := enumRe.FindStringSubmatch(trimmed); m != nil {
		var values []string
		for _, v := range strings.Split(m[1], ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				return Type{}, fmt.Errorf("%w: %q (empty enum value)", ErrUnsupportedType, trimmed)
			}
			values = append(values, v)
		}
		return EnumOf(values...), nil
	}

	switch trimmed {
	case ScalarString, ScalarNumber, ScalarBoolean:
		return Type{Kind: KindScalar, Scalar: trimmed}, nil
	default:
		return Type{}, fmt.Errorf("%w: %q", ErrUnsupportedType, trimmed)
	}
}

// MustParseType is like ParseType but panics on error. Intended for tests and literals.
func MustParseType(desc string) Type {
	t, err := ParseType(desc)
	if err != nil {
		panic(err)
	}
	return t
}

// ArrayOf returns an array type of elem.
func ArrayOf(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

// EnumOf returns an enum type over values.
func EnumOf(values ...string) Type {
	return Type{Kind: KindEnum, Values: values}
}

// ObjectOf returns an object type with the given fields.
func ObjectOf(fields Schema) Type {
	return Type{Kind: KindObject, Fields: fields}
}

// Equal reports whether two types are structurally identical. Enum values and
// object fields are compared as sets.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindScalar:
		return t.Scalar == o.Scalar
	case KindArray:
		if t.Elem == nil || o.Elem == nil {
			return t.Elem == o.Elem
		}
		return t.Elem.Equal(*o.Elem)
	case KindEnum:
		if len(t.Values) != len(o.Values) {
			return false
		}
		a, b := sortedCopy(t.Values), sortedCopy(o.Values)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	case KindObject:
		return t.Fields.Equal(o.Fields)
	}
	return false
}

// String renders the descriptor in its source form; objects render as {name: type, ...}.
func (t Type) String() string {
	switch t.Kind {
	case KindScalar:
		return t.Scalar
	case KindArray:
		if t.Elem == nil {
			return "[]"
		}
		return t.Elem.String() + "[]"
	case KindEnum:
		return "enum(" + strings.Join(t.Values, ", ") + ")"
	case KindObject:
		parts := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			parts = append(parts, f.Key()+": "+f.Type.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

// Key returns the field name as written in a definition, with a trailing "?" when optional.
func (f Field) Key() string {
	if f.Optional {
		return f.Name + "?"
	}
	return f.Name
}

// Equal reports whether two fields have the same name, optionality and type.
func (f Field) Equal(o Field) bool {
	return f.Name == o.Name && f.Optional == o.Optional && f.Type.Equal(o.Type)
}

// Lookup returns the field with the given name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for _, f := range s {
		names = append(names, f.Name)
	}
	return names
}

// Equal compares two schemas independent of field order.
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for _, f := range s {
		other, ok := o.Lookup(f.Name)
		if !ok || !f.Equal(other) {
			return false
		}
	}
	return true
}

// Sorted returns a copy of the schema with fields ordered by name, recursively.
func (s Schema) Sorted() Schema {
	out := make(Schema, len(s))
	for i, f := range s {
		f.Type = f.Type.sorted()
		out[i] = f
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func (t Type) sorted() Type {
	switch t.Kind {
	case KindArray:
		if t.Elem != nil {
			elem := t.Elem.sorted()
			t.Elem = &elem
		}
	case KindEnum:
		t.Values = sortedCopy(t.Values)
	case KindObject:
		t.Fields = t.Fields.Sorted()
	}
	return t
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
