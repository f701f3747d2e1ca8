// Package parser reads *.prompt.md files: YAML frontmatter followed by a
// templated body.
package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"gopkg.in/yaml.v3"
)

// FileSuffix is the extension of definition files.
const FileSuffix = ".prompt.md"

var (
	frontmatterRe = regexp.MustCompile(`^---\r?\n([\s\S]*?)\r?\n---(?:\r?\n)?([\s\S]*)$`)

	// VariablePattern matches {{ name }} and {{ name | "default" }}.
	VariablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_]\w*)(?:\s*\|\s*"([^"]*)")?\s*\}\}`)

	// SnippetPattern matches {{ @name }} (source-root reference) and
	// {{ @.name }} (reference relative to the including file).
	SnippetPattern = regexp.MustCompile(`\{\{\s*(@\.?[\w/.:-][\w/.:=-]*)\s*\}\}`)
)

// ParseFile reads and parses the definition at path.
func ParseFile(path string) (*ir.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data), path)
}

// Parse parses definition content. path is only used for error reporting and
// is stored on the returned definition.
func Parse(content, path string) (*ir.Definition, error) {
	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		return nil, &ir.Error{Kind: ir.DiagParse, Path: path, Msg: "invalid prompt file: missing frontmatter"}
	}
	rawYAML, body := m[1], m[2]

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(rawYAML), &doc); err != nil {
		return nil, &ir.Error{Kind: ir.DiagParse, Path: path, Msg: "invalid frontmatter", Err: err}
	}

	def := &ir.Definition{Path: path}
	root := documentRoot(&doc)
	if root != nil {
		if root.Kind != yaml.MappingNode {
			return nil, &ir.Error{Kind: ir.DiagParse, Path: path, Msg: "frontmatter must be a mapping"}
		}
		if err := decodeFrontmatter(root, def); err != nil {
			return nil, err
		}
	}

	if !def.Snippet && def.Model == "" {
		return nil, &ir.Error{Kind: ir.DiagParse, Path: path, Msg: "missing required field: model"}
	}

	def.Body = strings.TrimSpace(body)
	def.Variables = Variables(def.Body)
	def.Snippets = SnippetRefs(def.Body)
	return def, nil
}

// Variables returns the distinct template variable names used in body, in
// order of first occurrence.
func Variables(body string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range VariablePattern.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// SnippetRefs returns the distinct snippet references in body, in order of
// first occurrence, including the leading "@".
func SnippetRefs(body string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range SnippetPattern.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil
		}
		return doc.Content[0]
	}
	return doc
}

func decodeFrontmatter(root *yaml.Node, def *ir.Definition) error {
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i].Value, root.Content[i+1]
		switch key {
		case "model":
			if val.Kind != yaml.ScalarNode || val.Tag != "!!str" {
				return &ir.Error{Kind: ir.DiagParse, Path: def.Path, Msg: "model must be a string"}
			}
			def.Model = val.Value
		case "version":
			if val.Kind != yaml.ScalarNode {
				return &ir.Error{Kind: ir.DiagParse, Path: def.Path, Msg: "version must be a string"}
			}
			def.Version = val.Value
		case "snippet":
			var snippet bool
			if err := val.Decode(&snippet); err != nil {
				return &ir.Error{Kind: ir.DiagParse, Path: def.Path, Msg: "snippet must be a boolean", Err: err}
			}
			def.Snippet = snippet
		case "config":
			var cfg map[string]any
			if err := val.Decode(&cfg); err != nil {
				return &ir.Error{Kind: ir.DiagParse, Path: def.Path, Msg: "config must be a mapping", Err: err}
			}
			def.Config = cfg
		case "inputs":
			schema, err := parseSchema(val)
			if err != nil {
				return &ir.Error{Kind: ir.DiagSchema, Path: def.Path, Msg: "invalid inputs", Err: err}
			}
			def.Inputs = schema
		case "outputs":
			schema, err := parseSchema(val)
			if err != nil {
				return &ir.Error{Kind: ir.DiagSchema, Path: def.Path, Msg: "invalid outputs", Err: err}
			}
			def.Outputs = schema
		}
	}
	return nil
}

func parseSchema(node *yaml.Node) (ir.Schema, error) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping of field names to types (line %d)", ir.ErrUnsupportedType, node.Line)
	}

	schema := make(ir.Schema, 0, len(node.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		name, optional := strings.CutSuffix(key, "?")
		if name == "" {
			return nil, fmt.Errorf("empty field name (line %d)", node.Content[i].Line)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate field %q (line %d)", name, node.Content[i].Line)
		}
		seen[name] = true

		typ, err := parseTypeNode(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		schema = append(schema, ir.Field{Name: name, Optional: optional, Type: typ})
	}
	return schema, nil
}

func parseTypeNode(node *yaml.Node) (ir.Type, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return parseTypeNode(node.Alias)
	case yaml.ScalarNode:
		return ir.ParseType(node.Value)
	case yaml.MappingNode:
		fields, err := parseSchema(node)
		if err != nil {
			return ir.Type{}, err
		}
		return ir.ObjectOf(fields), nil
	case yaml.SequenceNode:
		if len(node.Content) != 1 {
			return ir.Type{}, fmt.Errorf("%w: array form takes exactly one element type (line %d)", ir.ErrUnsupportedType, node.Line)
		}
		elem, err := parseTypeNode(node.Content[0])
		if err != nil {
			return ir.Type{}, err
		}
		return ir.ArrayOf(elem), nil
	}
	return ir.Type{}, fmt.Errorf("%w (line %d)", ir.ErrUnsupportedType, node.Line)
}
