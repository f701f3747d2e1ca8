// Package emit defines the contract between the build engine and the code
// generators that turn resolved definitions into source modules.
package emit

import (
	"path"
	"strings"
	"unicode"

	"github.com/YAOSGit/prompt-opm/internal/ir"
)

// Meta is build metadata embedded into every generated module.
type Meta struct {
	Version            string `json:"version"`
	LastUpdated        string `json:"lastUpdated"`
	SourceFile         string `json:"sourceFile"`
	ContentHash        string `json:"contentHash"`
	TokenEstimate      int    `json:"tokenEstimate"`
	InputTokenEstimate int    `json:"inputTokenEstimate"`
}

// Input is everything an emitter needs to render one root prompt.
type Input struct {
	// Module is the module name, the definition file name without its suffix.
	Module   string
	Source   string // path relative to the source root
	Model    string
	Config   map[string]any
	Meta     Meta
	Inputs   ir.Schema // merged with every included snippet
	Outputs  ir.Schema
	Template string // resolved body, variables left in place
	Package  string // package name for targets that need one
}

// File is one generated file, relative to the output directory.
type File struct {
	Path    string
	Content []byte
}

// Emitter renders one target language.
type Emitter interface {
	// Name is the target name used in configuration, e.g. "go".
	Name() string

	// Outputs lists the files Emit writes for module, relative to the output
	// directory. Used to delete artifacts of removed definitions.
	Outputs(module string) []string

	// Emit renders one root prompt.
	Emit(in *Input) ([]File, error)

	// Finalize renders the per-target files that cover every module, such
	// as a barrel or shared helpers. modules is sorted.
	Finalize(modules []string, pkg string) ([]File, error)
}

// ModuleName derives the module name from a definition path.
func ModuleName(relPath string) string {
	return strings.TrimSuffix(path.Base(relPath), ".prompt.md")
}

var initialisms = map[string]string{
	"api": "API", "id": "ID", "json": "JSON", "llm": "LLM",
	"url": "URL", "uri": "URI", "html": "HTML", "http": "HTTP",
}

// Identifier converts a module or field name such as "code-review" or
// "user_id" to an identifier: "CodeReview"/"UserID" when exported,
// "codeReview"/"userID" otherwise.
func Identifier(name string, exported bool) string {
	words := splitWords(name)
	var b strings.Builder
	for i, w := range words {
		lower := strings.ToLower(w)
		if i == 0 && !exported {
			b.WriteString(lowerFirst(w))
			continue
		}
		if up, ok := initialisms[lower]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(upperFirst(w))
	}
	id := b.String()
	if id == "" || unicode.IsDigit([]rune(id)[0]) {
		if exported {
			return "X" + id
		}
		return "x" + id
	}
	return id
}

func splitWords(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func upperFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
