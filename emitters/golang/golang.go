// Package golang emits a typed Go package: one file per prompt with input and
// output structs, enum validation and a render function, plus a shared
// runtime file.
package golang

import (
	"fmt"
	"go/format"
	"go/token"
	"slices"
	"strconv"
	"strings"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
)

const (
	header = "// Code generated by prompt-opm. DO NOT EDIT.\n"

	// RuntimeFile holds the helpers shared by every generated module.
	RuntimeFile = "prompt_opm.go"

	fileSuffix = ".prompt.go"
)

// Emitter renders the "go" target.
type Emitter struct{}

func New() *Emitter {
	return &Emitter{}
}

func (e *Emitter) Name() string {
	return "go"
}

func (e *Emitter) Outputs(module string) []string {
	return []string{module + fileSuffix}
}

func (e *Emitter) Emit(in *emit.Input) ([]emit.File, error) {
	if !token.IsIdentifier(in.Package) {
		return nil, fmt.Errorf("invalid Go package name %q", in.Package)
	}

	g := &generator{}
	prefix := emit.Identifier(in.Module, true)

	fmt.Fprint(&g.b, header)
	fmt.Fprintf(&g.b, "// source: %s\n\npackage %s\n\n", in.Source, in.Package)

	fmt.Fprintf(&g.b, "// %sModel is the model the prompt was written for.\n", prefix)
	fmt.Fprintf(&g.b, "const %sModel = %s\n\n", prefix, strconv.Quote(in.Model))

	fmt.Fprintf(&g.b, "// %sConfig holds the model parameters declared in the definition.\n", prefix)
	fmt.Fprintf(&g.b, "var %sConfig = %s\n\n", prefix, literal(in.Config))

	fmt.Fprintf(&g.b, "var %sMeta = Meta{\n", prefix)
	fmt.Fprintf(&g.b, "Version: %s,\n", strconv.Quote(in.Meta.Version))
	fmt.Fprintf(&g.b, "LastUpdated: %s,\n", strconv.Quote(in.Meta.LastUpdated))
	fmt.Fprintf(&g.b, "SourceFile: %s,\n", strconv.Quote(in.Meta.SourceFile))
	fmt.Fprintf(&g.b, "ContentHash: %s,\n", strconv.Quote(in.Meta.ContentHash))
	fmt.Fprintf(&g.b, "TokenEstimate: %d,\n", in.Meta.TokenEstimate)
	fmt.Fprintf(&g.b, "InputTokenEstimate: %d,\n", in.Meta.InputTokenEstimate)
	fmt.Fprint(&g.b, "}\n\n")

	g.structs = append(g.structs,
		structDef{name: prefix + "Input", fields: in.Inputs, values: true},
		structDef{name: prefix + "Output", fields: in.Outputs},
	)
	for len(g.structs) > 0 {
		def := g.structs[0]
		g.structs = g.structs[1:]
		g.writeStruct(def)
	}

	fmt.Fprintf(&g.b, "// %sTemplate is the resolved prompt body.\n", prefix)
	fmt.Fprintf(&g.b, "const %sTemplate = %s\n\n", prefix, templateLiteral(in.Template))

	fmt.Fprintf(&g.b, "// %sPrompt validates in and renders %sTemplate.\n", prefix, prefix)
	fmt.Fprintf(&g.b, "func %sPrompt(in %sInput) (string, error) {\n", prefix, prefix)
	fmt.Fprint(&g.b, "if err := in.Validate(); err != nil {\nreturn \"\", err\n}\n")
	fmt.Fprintf(&g.b, "return renderTemplate(%sTemplate, in.values()), nil\n}\n", prefix)

	src, err := format.Source([]byte(g.b.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to format generated code for %s: %w", in.Module, err)
	}
	return []emit.File{{Path: in.Module + fileSuffix, Content: src}}, nil
}

type structDef struct {
	name   string
	fields ir.Schema
	values bool // also generate the values() accessor used for rendering
}

type generator struct {
	b       strings.Builder
	structs []structDef
}

type goField struct {
	ir.Field
	goName string
	goType string
}

func (g *generator) writeStruct(def structDef) {
	fields := g.fields(def)

	fmt.Fprintf(&g.b, "type %s struct {\n", def.name)
	for _, f := range fields {
		tag := f.Name
		if f.Optional {
			tag += ",omitempty"
		}
		fmt.Fprintf(&g.b, "%s %s `json:%s`\n", f.goName, f.goType, strconv.Quote(tag))
	}
	fmt.Fprint(&g.b, "}\n\n")

	fmt.Fprintf(&g.b, "// Validate checks enum values of v and of every nested value.\n")
	fmt.Fprintf(&g.b, "func (v %s) Validate() error {\n", def.name)
	for _, f := range fields {
		expr := "v." + f.goName
		if f.Optional && f.Type.Kind != ir.KindArray {
			if !needsCheck(f.Type) {
				continue
			}
			fmt.Fprintf(&g.b, "if %s != nil {\n", expr)
			if f.Type.Kind == ir.KindEnum {
				g.writeCheck("*"+expr, f.Name, f.Type, 0)
			} else {
				g.writeCheck(expr, f.Name, f.Type, 0)
			}
			fmt.Fprint(&g.b, "}\n")
			continue
		}
		g.writeCheck(expr, f.Name, f.Type, 0)
	}
	fmt.Fprint(&g.b, "return nil\n}\n\n")

	if def.values {
		fmt.Fprintf(&g.b, "func (v %s) values() map[string]any {\n", def.name)
		fmt.Fprint(&g.b, "return map[string]any{\n")
		for _, f := range fields {
			fmt.Fprintf(&g.b, "%s: v.%s,\n", strconv.Quote(f.Name), f.goName)
		}
		fmt.Fprint(&g.b, "}\n}\n\n")
	}
}

// fields assigns unique Go names and types; nested objects are queued as
// their own struct types.
func (g *generator) fields(def structDef) []goField {
	used := map[string]bool{"Validate": true}
	out := make([]goField, 0, len(def.fields))
	for _, f := range def.fields {
		name := emit.Identifier(f.Name, true)
		for i := 2; used[name]; i++ {
			name = emit.Identifier(f.Name, true) + strconv.Itoa(i)
		}
		used[name] = true

		typ := g.goType(def.name+name, f.Type)
		if f.Optional && f.Type.Kind != ir.KindArray {
			typ = "*" + typ
		}
		out = append(out, goField{Field: f, goName: name, goType: typ})
	}
	return out
}

func (g *generator) goType(name string, t ir.Type) string {
	switch t.Kind {
	case ir.KindScalar:
		switch t.Scalar {
		case ir.ScalarNumber:
			return "float64"
		case ir.ScalarBoolean:
			return "bool"
		default:
			return "string"
		}
	case ir.KindEnum:
		return "string"
	case ir.KindArray:
		return "[]" + g.goType(name+"Item", *t.Elem)
	case ir.KindObject:
		g.structs = append(g.structs, structDef{name: name, fields: t.Fields})
		return name
	}
	return "any"
}

func (g *generator) writeCheck(expr, path string, t ir.Type, depth int) {
	switch t.Kind {
	case ir.KindEnum:
		values := make([]string, len(t.Values))
		for i, v := range t.Values {
			values[i] = strconv.Quote(v)
		}
		fmt.Fprintf(&g.b, "if err := checkEnum(%s, %s, %s); err != nil {\nreturn err\n}\n",
			strconv.Quote(path), expr, strings.Join(values, ", "))
	case ir.KindObject:
		fmt.Fprintf(&g.b, "if err := %s.Validate(); err != nil {\nreturn fieldError(%s, err)\n}\n",
			expr, strconv.Quote(path))
	case ir.KindArray:
		if !needsCheck(*t.Elem) {
			return
		}
		item := fmt.Sprintf("v%d", depth)
		fmt.Fprintf(&g.b, "for _, %s := range %s {\n", item, expr)
		g.writeCheck(item, path+"[]", *t.Elem, depth+1)
		fmt.Fprint(&g.b, "}\n")
	}
}

func needsCheck(t ir.Type) bool {
	switch t.Kind {
	case ir.KindEnum, ir.KindObject:
		return true
	case ir.KindArray:
		return needsCheck(*t.Elem)
	}
	return false
}

func templateLiteral(s string) string {
	if !strings.ContainsAny(s, "`\r") {
		return "`" + s + "`"
	}
	return strconv.Quote(s)
}

// literal renders a decoded YAML value as a Go expression.
func literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		s := strconv.FormatFloat(val, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var b strings.Builder
		b.WriteString("map[string]any{")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n%s: %s,", strconv.Quote(k), literal(val[k]))
		}
		if len(keys) > 0 {
			b.WriteString("\n")
		}
		b.WriteString("}")
		return b.String()
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = literal(item)
		}
		return "[]any{" + strings.Join(parts, ", ") + "}"
	default:
		return strconv.Quote(fmt.Sprint(val))
	}
}
