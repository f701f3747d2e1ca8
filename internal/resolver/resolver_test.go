package resolver

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func resolveFile(t *testing.T, root, name string) (*ir.ResolvedDefinition, error) {
	t.Helper()
	def, err := parser.ParseFile(filepath.Join(root, name))
	require.NoError(t, err)
	return New(root, nil).Resolve(def)
}

func TestResolve_NoSnippets(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"plain.prompt.md": "---\nmodel: m\ninputs:\n  name: string\n---\nHello {{ name }}",
	})

	res, err := resolveFile(t, root, "plain.prompt.md")
	require.NoError(t, err)
	assert.Equal(t, "Hello {{ name }}", res.Body)
	assert.Equal(t, []string{"name"}, res.Inputs.Names())
	assert.Empty(t, res.Dependencies)
	assert.Empty(t, res.Warnings)
}

func TestResolve_ExpandsAndMerges(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"main.prompt.md":         "---\nmodel: m\ninputs:\n  task: string\n---\n{{ @shared/intro }}\nDo {{ task }}.\n{{@shared/intro}}\n{{ @.local }}",
		"shared/intro.prompt.md": "---\nsnippet: true\ninputs:\n  user: string\n---\nYou help {{ user }}.",
		"local.prompt.md":        "---\nsnippet: true\ninputs:\n  lang?: enum(en, fr)\n---\nAnswer in {{ lang | \"en\" }}.",
	})

	res, err := resolveFile(t, root, "main.prompt.md")
	require.NoError(t, err)

	assert.Equal(t, "You help {{ user }}.\nDo {{ task }}.\nYou help {{ user }}.\nAnswer in {{ lang | \"en\" }}.", res.Body)
	assert.Equal(t, []string{"task", "user", "lang"}, res.Inputs.Names())
	assert.Equal(t, []string{
		filepath.Join(root, "shared", "intro.prompt.md"),
		filepath.Join(root, "local.prompt.md"),
	}, res.Dependencies)
	assert.Equal(t, []string{"task"}, res.Definition.Inputs.Names(), "definition is not mutated")
}

func TestResolve_RelativeToImporter(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a/main.prompt.md":     "---\nmodel: m\n---\n{{ @.part }}",
		"a/part.prompt.md":     "---\nsnippet: true\n---\n{{ @.sub/leaf }}",
		"a/sub/leaf.prompt.md": "---\nsnippet: true\n---\nleaf",
	})

	res, err := resolveFile(t, root, "a/main.prompt.md")
	require.NoError(t, err)
	assert.Equal(t, "leaf", res.Body)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "part.prompt.md"),
		filepath.Join(root, "a", "sub", "leaf.prompt.md"),
	}, res.Dependencies)
}

func TestResolve_Diamond(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"top.prompt.md":   "---\nmodel: m\n---\n{{ @left }} {{ @right }}",
		"left.prompt.md":  "---\nsnippet: true\n---\nL({{ @base }})",
		"right.prompt.md": "---\nsnippet: true\n---\nR({{ @base }})",
		"base.prompt.md":  "---\nsnippet: true\ninputs:\n  x: number\n---\nB",
	})

	res, err := resolveFile(t, root, "top.prompt.md")
	require.NoError(t, err)
	assert.Equal(t, "L(B) R(B)", res.Body)
	assert.Equal(t, []string{"x"}, res.Inputs.Names())

	base := filepath.Join(root, "base.prompt.md")
	assert.Equal(t, []string{
		filepath.Join(root, "left.prompt.md"), base,
		filepath.Join(root, "right.prompt.md"), base,
	}, res.Dependencies)
}

func TestResolve_Cycle(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"main.prompt.md": "---\nmodel: m\n---\n{{ @a }}",
		"a.prompt.md":    "---\nsnippet: true\n---\n{{ @b }}",
		"b.prompt.md":    "---\nsnippet: true\n---\n{{ @a }}",
	})

	_, err := resolveFile(t, root, "main.prompt.md")
	require.Error(t, err)
	assert.Equal(t, ir.DiagCircular, ir.KindOf(err))

	var rerr *ir.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{"a.prompt.md", "b.prompt.md", "a.prompt.md"}, rerr.Cycle)
	assert.Equal(t, "circular dependency detected: a.prompt.md -> b.prompt.md -> a.prompt.md", err.Error())
}

func TestResolve_SelfReference(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"self.prompt.md": "---\nmodel: m\n---\n{{ @self }}",
	})

	_, err := resolveFile(t, root, "self.prompt.md")
	var rerr *ir.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{"self.prompt.md", "self.prompt.md"}, rerr.Cycle)
}

func TestResolve_Conflict(t *testing.T) {
	tests := []struct {
		name  string
		other string
	}{
		{"type", "  topic: number"},
		{"optionality", "  topic?: string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeFiles(t, map[string]string{
				"main.prompt.md": "---\nmodel: m\ninputs:\n  topic: string\n---\n{{ @s }}",
				"s.prompt.md":    "---\nsnippet: true\ninputs:\n" + tt.other + "\n---\nabout {{ topic }}",
			})

			_, err := resolveFile(t, root, "main.prompt.md")
			var rerr *ir.Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, ir.DiagSchemaConflict, rerr.Kind)
			assert.Equal(t, "topic", rerr.Field)
			assert.Equal(t, [2]string{"main.prompt.md", "s.prompt.md"}, rerr.Sources)
		})
	}
}

func TestResolve_IdenticalRedeclarationIsLegal(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"main.prompt.md": "---\nmodel: m\ninputs:\n  level: enum(low, high)\n---\n{{ @s }}",
		"s.prompt.md":    "---\nsnippet: true\ninputs:\n  level: enum(high, low)\n---\n{{ level }}",
	})

	res, err := resolveFile(t, root, "main.prompt.md")
	require.NoError(t, err)
	assert.Len(t, res.Inputs, 1)
}

func TestResolve_NotFound(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"main.prompt.md": "---\nmodel: m\n---\n{{ @missing }}",
	})

	_, err := resolveFile(t, root, "main.prompt.md")
	require.Error(t, err)
	assert.Equal(t, ir.DiagSnippetNotFound, ir.KindOf(err))
	assert.Contains(t, err.Error(), "@missing")
	assert.Contains(t, err.Error(), filepath.Join(root, "missing.prompt.md"))
}

func TestResolve_ExcludedSnippet(t *testing.T) {
	loader := LoaderFunc(func(path string) (*ir.Definition, error) {
		return nil, ErrExcluded
	})

	_, err := New("/virtual", loader).Resolve(&ir.Definition{Path: "/virtual/main.prompt.md", Model: "m", Body: "{{ @drafts/intro }}"})
	require.Error(t, err)
	assert.Equal(t, ir.DiagSnippetNotFound, ir.KindOf(err))
	assert.Contains(t, err.Error(), "drafts/intro.prompt.md matches an exclude pattern")
	assert.ErrorIs(t, ErrExcluded, fs.ErrNotExist)
}

func TestResolve_SnippetParseErrorKeepsKind(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"main.prompt.md": "---\nmodel: m\n---\n{{ @bad }}",
		"bad.prompt.md":  "---\nsnippet: true\ninputs:\n  x: date\n---\nbody",
	})

	_, err := resolveFile(t, root, "main.prompt.md")
	require.Error(t, err)
	assert.Equal(t, ir.DiagSchema, ir.KindOf(err))
}

func TestResolve_OutputsWarning(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"main.prompt.md": "---\nmodel: m\n---\n{{ @s }}",
		"s.prompt.md":    "---\nsnippet: true\noutputs:\n  y: string\n---\nS",
	})

	res, err := resolveFile(t, root, "main.prompt.md")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "s.prompt.md")
	assert.Empty(t, res.Inputs)
}

func TestResolve_FakeLoader(t *testing.T) {
	defs := map[string]*ir.Definition{
		"/virtual/s.prompt.md": {Path: "/virtual/s.prompt.md", Snippet: true, Body: "snippet body"},
	}
	loader := LoaderFunc(func(path string) (*ir.Definition, error) {
		if def, ok := defs[path]; ok {
			return def, nil
		}
		return nil, fs.ErrNotExist
	})

	r := New("/virtual", loader)
	res, err := r.Resolve(&ir.Definition{Path: "/virtual/main.prompt.md", Model: "m", Body: "before {{ @s }} after {{ v }}"})
	require.NoError(t, err)
	assert.Equal(t, "before snippet body after {{ v }}", res.Body)
	assert.Equal(t, []string{"/virtual/s.prompt.md"}, res.Dependencies)
}
