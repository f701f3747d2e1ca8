package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/internal/parser"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
)

// Report is the outcome of validating a source tree.
type Report struct {
	Checked     int             `json:"checked"`
	Diagnostics []ir.Diagnostic `json:"diagnostics"`
	Warnings    []string        `json:"warnings"`
}

// Err returns a non-nil error when the report holds diagnostics.
func (r *Report) Err() error {
	if len(r.Diagnostics) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		errs = append(errs, errors.New(d.String()))
	}
	return fmt.Errorf("%d error(s) in %d file(s): %w", len(r.Diagnostics), r.Checked, errors.Join(errs...))
}

// Validate parses and resolves every file without building anything.
//
// Besides parse and resolution failures it reports template variables that no
// input declares, and warns about inputs of root prompts that the template
// never uses.
func (e *Engine) Validate(files []*ir.SourceFile) *Report {
	report := &Report{Checked: len(files)}
	modules := make(map[string]string)

	for _, f := range files {
		def, res, err := e.load(f)
		if err != nil {
			report.Diagnostics = append(report.Diagnostics, ir.NewDiagnostic(f.RelPath, err))
			continue
		}
		for _, w := range res.Warnings {
			report.Warnings = append(report.Warnings, f.RelPath+": "+w)
		}

		declared := res.Inputs.Names()
		used := parser.Variables(res.Body)

		for _, v := range used {
			if !slices.Contains(declared, v) {
				report.Diagnostics = append(report.Diagnostics, ir.Diagnostic{
					Path:    f.RelPath,
					Message: fmt.Sprintf("variable %q used in body but not declared in inputs", v),
					Kind:    ir.DiagSchema,
				})
			}
		}

		if def.Snippet {
			continue
		}

		for _, name := range declared {
			if !slices.Contains(used, name) {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: input %q declared but never used in template", f.RelPath, name))
			}
		}

		module := emit.ModuleName(f.RelPath)
		if owner, ok := modules[module]; ok {
			report.Diagnostics = append(report.Diagnostics, ir.Diagnostic{
				Path:    f.RelPath,
				Message: fmt.Sprintf("duplicate module name %q (also defined by %s)", module, owner),
				Kind:    ir.DiagParse,
			})
			continue
		}
		modules[module] = f.RelPath
	}
	return report
}

// load parses and resolves one scanned file.
func (e *Engine) load(f *ir.SourceFile) (*ir.Definition, *ir.ResolvedDefinition, error) {
	def, err := parser.Parse(f.Content, f.Path)
	if err != nil {
		return nil, nil, err
	}
	res, err := e.resolver.Resolve(def)
	if err != nil {
		return nil, nil, err
	}
	return def, res, nil
}
