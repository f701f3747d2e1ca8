package golang

import (
	"fmt"
	"go/format"
	"go/token"
	"strconv"
	"strings"

	"github.com/YAOSGit/prompt-opm/pkg/emit"
)

const runtimeBody = `
import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Meta describes the build that produced a prompt module.
type Meta struct {
	Version            string ` + "`json:\"version\"`" + `
	LastUpdated        string ` + "`json:\"lastUpdated\"`" + `
	SourceFile         string ` + "`json:\"sourceFile\"`" + `
	ContentHash        string ` + "`json:\"contentHash\"`" + `
	TokenEstimate      int    ` + "`json:\"tokenEstimate\"`" + `
	InputTokenEstimate int    ` + "`json:\"inputTokenEstimate\"`" + `
}

var variablePattern = regexp.MustCompile(` + "`" + `\{\{\s*([a-zA-Z_]\w*)(?:\s*\|\s*"([^"]*)")?\s*\}\}` + "`" + `)

// renderTemplate substitutes {{ name }} and {{ name | "default" }}
// placeholders. Absent values render as their default, or as nothing.
func renderTemplate(template string, values map[string]any) string {
	return variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		m := variablePattern.FindStringSubmatch(match)
		if s, ok := formatValue(values[m[1]]); ok {
			return s
		}
		return m[2]
	})
}

func formatValue(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return "", false
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Slice:
		if rv.IsNil() {
			return "", false
		}
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, _ := formatValue(rv.Index(i).Interface())
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), true
	default:
		data, err := json.Marshal(rv.Interface())
		if err != nil {
			return fmt.Sprint(rv.Interface()), true
		}
		return string(data), true
	}
}

func checkEnum(field, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s: invalid value %q, expected one of %s", field, value, strings.Join(allowed, ", "))
}

func fieldError(field string, err error) error {
	return fmt.Errorf("%s: %w", field, err)
}
`

// Finalize renders the runtime file shared by every module of the package.
func (e *Emitter) Finalize(modules []string, pkg string) ([]emit.File, error) {
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("invalid Go package name %q", pkg)
	}

	var b strings.Builder
	fmt.Fprint(&b, header)
	fmt.Fprintf(&b, "\npackage %s\n", pkg)
	b.WriteString(runtimeBody)

	fmt.Fprint(&b, "\n// Modules lists every generated prompt module.\nvar Modules = []string{\n")
	for _, m := range modules {
		fmt.Fprintf(&b, "%s,\n", strconv.Quote(m))
	}
	fmt.Fprint(&b, "}\n")

	src, err := format.Source([]byte(b.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to format %s: %w", RuntimeFile, err)
	}
	return []emit.File{{Path: RuntimeFile, Content: src}}, nil
}
