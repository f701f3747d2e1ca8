package golang

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() *emit.Input {
	return &emit.Input{
		Module: "code-review",
		Source: "review/code-review.prompt.md",
		Model:  "gpt-4o",
		Config: map[string]any{"temperature": 0.2, "maxTokens": 512, "stop": []any{"END"}},
		Meta: emit.Meta{
			Version:            "1.0.1",
			LastUpdated:        "2026-01-01T00:00:00Z",
			SourceFile:         "review/code-review.prompt.md",
			ContentHash:        "abc",
			TokenEstimate:      20,
			InputTokenEstimate: 15,
		},
		Inputs: ir.Schema{
			{Name: "code", Type: ir.MustParseType("string")},
			{Name: "severity", Optional: true, Type: ir.MustParseType("enum(low, high)")},
			{Name: "labels", Type: ir.MustParseType("enum(bug, style)[]")},
			{Name: "author", Type: ir.ObjectOf(ir.Schema{
				{Name: "name", Type: ir.MustParseType("string")},
				{Name: "user_id", Optional: true, Type: ir.MustParseType("number")},
			})},
		},
		Outputs: ir.Schema{
			{Name: "approved", Type: ir.MustParseType("boolean")},
		},
		Template: "Review {{ code }} at {{ severity | \"low\" }} severity.",
		Package:  "prompts",
	}
}

func TestEmitter_Emit(t *testing.T) {
	e := New()
	files, err := e.Emit(sampleInput())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "code-review.prompt.go", files[0].Path)
	assert.Equal(t, e.Outputs("code-review"), []string{files[0].Path})

	src := string(files[0].Content)
	_, err = parser.ParseFile(token.NewFileSet(), files[0].Path, src, parser.AllErrors)
	require.NoError(t, err, src)

	assert.Contains(t, src, "// Code generated by prompt-opm. DO NOT EDIT.")
	assert.Contains(t, src, "package prompts")
	assert.Contains(t, src, `const CodeReviewModel = "gpt-4o"`)
	assert.Contains(t, src, `"temperature": 0.2,`)
	assert.Regexp(t, `"maxTokens":\s+512,`, src)
	assert.Contains(t, src, "type CodeReviewInput struct")
	assert.Contains(t, src, "Severity *string")
	assert.Contains(t, src, "Labels   []string")
	assert.Contains(t, src, "Author   CodeReviewInputAuthor")
	assert.Contains(t, src, "type CodeReviewInputAuthor struct")
	assert.Contains(t, src, "UserID *float64 `json:\"user_id,omitempty\"`")
	assert.Contains(t, src, `checkEnum("severity", *v.Severity, "low", "high")`)
	assert.Contains(t, src, `checkEnum("labels[]", v0, "bug", "style")`)
	assert.Contains(t, src, `return fieldError("author", err)`)
	assert.Contains(t, src, "Approved bool `json:\"approved\"`")
	assert.Contains(t, src, "func CodeReviewPrompt(in CodeReviewInput) (string, error)")
	assert.Contains(t, src, "const CodeReviewTemplate = `Review {{ code }}")
}

func TestEmitter_Deterministic(t *testing.T) {
	first, err := New().Emit(sampleInput())
	require.NoError(t, err)
	second, err := New().Emit(sampleInput())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEmitter_ReservedAndDuplicateNames(t *testing.T) {
	in := sampleInput()
	in.Inputs = ir.Schema{
		{Name: "validate", Type: ir.MustParseType("string")},
		{Name: "user_id", Type: ir.MustParseType("string")},
		{Name: "user-id", Type: ir.MustParseType("string")},
	}
	in.Template = "x`y"

	files, err := New().Emit(in)
	require.NoError(t, err)
	src := string(files[0].Content)
	assert.Regexp(t, `Validate2\s+string`, src)
	assert.Regexp(t, `UserID2\s+string`, src)
	assert.Contains(t, src, `const CodeReviewTemplate = "x`+"`"+`y"`)
}

func TestEmitter_InvalidPackage(t *testing.T) {
	in := sampleInput()
	in.Package = "my-prompts"
	_, err := New().Emit(in)
	assert.Error(t, err)
}

func TestEmitter_Finalize(t *testing.T) {
	files, err := New().Finalize([]string{"a", "b"}, "prompts")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, RuntimeFile, files[0].Path)

	src := string(files[0].Content)
	_, err = parser.ParseFile(token.NewFileSet(), RuntimeFile, src, parser.AllErrors)
	require.NoError(t, err, src)
	assert.Contains(t, src, "type Meta struct")
	assert.Contains(t, src, "func renderTemplate(")
	assert.Contains(t, src, "var Modules = []string{\n\t\"a\",\n\t\"b\",\n}")
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "map[string]any{}", literal(map[string]any(nil)))
	assert.Equal(t, "1.0", literal(1.0))
	assert.Equal(t, "0.5", literal(0.5))
	assert.Equal(t, "[]any{\"a\", 2, true}", literal([]any{"a", 2, true}))
}
