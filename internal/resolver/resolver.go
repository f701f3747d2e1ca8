// Package resolver expands snippet references in definition bodies and
// merges the input schemas of every included snippet.
package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/internal/parser"
)

// Loader loads the definition stored at an absolute path. A missing file must
// be reported with an error matching fs.ErrNotExist.
type Loader interface {
	Load(path string) (*ir.Definition, error)
}

// ErrExcluded is returned by a Loader for a file the project excludes from
// the build. It matches fs.ErrNotExist.
var ErrExcluded = fmt.Errorf("excluded from the build: %w", fs.ErrNotExist)

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (*ir.Definition, error)

func (f LoaderFunc) Load(path string) (*ir.Definition, error) {
	return f(path)
}

// FileLoader reads definitions from disk.
type FileLoader struct{}

func (FileLoader) Load(path string) (*ir.Definition, error) {
	return parser.ParseFile(path)
}

// Resolver expands {{ @name }} references against SourceRoot and
// {{ @.name }} references against the directory of the referencing file.
type Resolver struct {
	sourceRoot string
	loader     Loader
}

// New creates a resolver. A nil loader reads from disk.
func New(sourceRoot string, loader Loader) *Resolver {
	if abs, err := filepath.Abs(sourceRoot); err == nil {
		sourceRoot = abs
	}
	if loader == nil {
		loader = FileLoader{}
	}
	return &Resolver{sourceRoot: sourceRoot, loader: loader}
}

// SourceRoot returns the absolute source root.
func (r *Resolver) SourceRoot() string {
	return r.sourceRoot
}

type resolved struct {
	*ir.ResolvedDefinition
	// sources maps each merged input to the file that declared it.
	sources map[string]string
}

// Resolve expands every snippet reference in def, recursively.
func (r *Resolver) Resolve(def *ir.Definition) (*ir.ResolvedDefinition, error) {
	res, err := r.resolve(def, nil)
	if err != nil {
		return nil, err
	}
	return res.ResolvedDefinition, nil
}

// TargetPath returns the file a reference such as "@intro" or "@.local"
// points at when it appears in the file at from.
func (r *Resolver) TargetPath(ref, from string) string {
	name := strings.TrimPrefix(ref, "@")
	dir := r.sourceRoot
	if rest, ok := strings.CutPrefix(name, "."); ok {
		dir = filepath.Dir(from)
		name = rest
	}
	return filepath.Join(dir, filepath.FromSlash(name)+parser.FileSuffix)
}

func (r *Resolver) resolve(def *ir.Definition, ancestors []string) (*resolved, error) {
	self, err := filepath.Abs(def.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", def.Path, err)
	}

	if i := slices.Index(ancestors, self); i >= 0 {
		cycle := make([]string, 0, len(ancestors)-i+1)
		for _, p := range ancestors[i:] {
			cycle = append(cycle, r.display(p))
		}
		cycle = append(cycle, r.display(self))
		return nil, &ir.Error{Kind: ir.DiagCircular, Path: r.display(ancestors[0]), Cycle: cycle}
	}
	// Full slice expression: siblings never share a backing array.
	chain := append(ancestors[:len(ancestors):len(ancestors)], self)

	out := &resolved{
		ResolvedDefinition: &ir.ResolvedDefinition{
			Definition: def,
			Inputs:     slices.Clone(def.Inputs),
		},
		sources: make(map[string]string, len(def.Inputs)),
	}
	for _, f := range def.Inputs {
		out.sources[f.Name] = r.display(self)
	}

	bodies := make(map[string]string)
	for _, ref := range parser.SnippetRefs(def.Body) {
		target := r.TargetPath(ref, self)

		snippet, err := r.loader.Load(target)
		if err != nil {
			if errors.Is(err, ErrExcluded) {
				return nil, &ir.Error{
					Kind: ir.DiagSnippetNotFound,
					Path: r.display(self),
					Msg:  fmt.Sprintf("snippet %q not found (%s matches an exclude pattern)", ref, r.display(target)),
				}
			}
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &ir.Error{
					Kind: ir.DiagSnippetNotFound,
					Path: r.display(self),
					Msg:  fmt.Sprintf("snippet %q not found (looked for %s)", ref, target),
				}
			}
			return nil, fmt.Errorf("failed to load snippet %q: %w", ref, err)
		}

		child, err := r.resolve(snippet, chain)
		if err != nil {
			return nil, err
		}

		if len(snippet.Outputs) > 0 {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("%s: snippet %s declares outputs; they are ignored", r.display(self), r.display(target)))
		}
		out.Warnings = append(out.Warnings, child.Warnings...)

		for _, f := range child.Inputs {
			existing, ok := out.Inputs.Lookup(f.Name)
			if !ok {
				out.Inputs = append(out.Inputs, f)
				out.sources[f.Name] = child.sources[f.Name]
				continue
			}
			if !existing.Equal(f) {
				return nil, &ir.Error{
					Kind:    ir.DiagSchemaConflict,
					Path:    r.display(self),
					Field:   f.Name,
					Sources: [2]string{out.sources[f.Name], child.sources[f.Name]},
					Msg:     fmt.Sprintf("%s vs %s", describe(existing), describe(f)),
				}
			}
		}

		out.Dependencies = append(out.Dependencies, target)
		out.Dependencies = append(out.Dependencies, child.Dependencies...)
		bodies[ref] = child.Body
	}

	out.Body = parser.SnippetPattern.ReplaceAllStringFunc(def.Body, func(match string) string {
		m := parser.SnippetPattern.FindStringSubmatch(match)
		if body, ok := bodies[m[1]]; ok {
			return body
		}
		return match
	})
	return out, nil
}

// display renders p relative to the source root when it lies inside it.
func (r *Resolver) display(p string) string {
	rel, err := filepath.Rel(r.sourceRoot, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}

func describe(f ir.Field) string {
	return f.Key() + ": " + f.Type.String()
}
