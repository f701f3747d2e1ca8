// Package zod emits TypeScript modules that describe each prompt with zod
// schemas, plus an index.ts barrel.
package zod

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
)

// BarrelFile re-exports every module.
const BarrelFile = "index.ts"

var jsIdentRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Emitter renders the "zod" target.
type Emitter struct{}

func New() *Emitter {
	return &Emitter{}
}

func (e *Emitter) Name() string {
	return "zod"
}

func (e *Emitter) Outputs(module string) []string {
	return []string{module + ".ts"}
}

func (e *Emitter) Emit(in *emit.Input) ([]emit.File, error) {
	config := "{} as const"
	if len(in.Config) > 0 {
		config = objectLiteral(in.Config, "") + " as const"
	}

	meta := objectLiteral(map[string]any{
		"version":            in.Meta.Version,
		"lastUpdated":        in.Meta.LastUpdated,
		"sourceFile":         in.Meta.SourceFile,
		"contentHash":        in.Meta.ContentHash,
		"tokenEstimate":      in.Meta.TokenEstimate,
		"inputTokenEstimate": in.Meta.InputTokenEstimate,
	}, "")

	template := strings.NewReplacer("\\", "\\\\", "`", "\\`", "$", "\\$").Replace(in.Template)

	var b strings.Builder
	b.WriteString("// Code generated by prompt-opm. DO NOT EDIT.\n")
	b.WriteString("import { z } from \"zod\";\n\n")
	fmt.Fprintf(&b, "export const model = %s as const;\n\n", jsString(in.Model))
	fmt.Fprintf(&b, "export const configs = %s;\n\n", config)
	fmt.Fprintf(&b, "export const meta = %s as const;\n\n", meta)
	fmt.Fprintf(&b, "export const inputSchema = %s;\n\n", objectSchema(in.Inputs, ""))
	b.WriteString("export type InputType = z.infer<typeof inputSchema>;\n\n")
	fmt.Fprintf(&b, "export const outputSchema = %s;\n\n", objectSchema(in.Outputs, ""))
	b.WriteString("export type OutputType = z.infer<typeof outputSchema>;\n\n")
	fmt.Fprintf(&b, "export const template = `%s`;\n\n", template)
	b.WriteString(promptFunc)

	return []emit.File{{Path: in.Module + ".ts", Content: []byte(b.String())}}, nil
}

const promptFunc = `export const prompt = (inputs: InputType): string => {
	const validated = inputSchema.parse(inputs) as Record<string, unknown>;
	const VARIABLE_RE = /\{\{\s*([a-zA-Z_]\w*)(?:\s*\|\s*"([^"]*)")?\s*\}\}/g;
	return template.replace(VARIABLE_RE, (_, key: string, defaultValue?: string) => {
		const value = validated[key];
		if (value === undefined || value === null) return defaultValue ?? "";
		return Array.isArray(value) ? value.join(", ") : String(value);
	});
};
`

// Finalize renders the barrel re-exporting every module.
func (e *Emitter) Finalize(modules []string, pkg string) ([]emit.File, error) {
	if len(modules) == 0 {
		return nil, nil
	}
	var b strings.Builder
	for _, m := range modules {
		fmt.Fprintf(&b, "export * as %s from %s;\n", emit.Identifier(m, false), jsString("./"+m+".js"))
	}
	return []emit.File{{Path: BarrelFile, Content: []byte(b.String())}}, nil
}

// objectSchema renders a z.object(...) for s, one field per line.
func objectSchema(s ir.Schema, indent string) string {
	if len(s) == 0 {
		return "z.object({})"
	}
	inner := indent + "\t"
	var b strings.Builder
	b.WriteString("z.object({\n")
	for _, f := range s {
		typ := zodType(f.Type, inner)
		if f.Optional {
			typ += ".optional()"
		}
		fmt.Fprintf(&b, "%s%s: %s,\n", inner, jsKey(f.Name), typ)
	}
	b.WriteString(indent + "})")
	return b.String()
}

func zodType(t ir.Type, indent string) string {
	switch t.Kind {
	case ir.KindArray:
		return "z.array(" + zodType(*t.Elem, indent) + ")"
	case ir.KindEnum:
		values := make([]string, len(t.Values))
		for i, v := range t.Values {
			values[i] = jsString(v)
		}
		return "z.enum([" + strings.Join(values, ", ") + "])"
	case ir.KindObject:
		return objectSchema(t.Fields, indent)
	default:
		return "z." + t.Scalar + "()"
	}
}

func objectLiteral(obj map[string]any, indent string) string {
	if len(obj) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	inner := indent + "\t"
	var b strings.Builder
	b.WriteString("{\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s%s: %s,\n", inner, jsKey(k), value(obj[k], inner))
	}
	b.WriteString(indent + "}")
	return b.String()
}

func value(v any, indent string) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return jsString(val)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		return objectLiteral(val, indent)
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = value(item, indent+"\t")
		}
		return "[" + strings.Join(items, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}

func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func jsKey(k string) string {
	if jsIdentRe.MatchString(k) {
		return k
	}
	return jsString(k)
}
