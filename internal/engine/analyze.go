package engine

import (
	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/internal/tokens"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
)

// PromptAnalysis describes one root prompt.
type PromptAnalysis struct {
	File               string   `json:"file"`
	Module             string   `json:"module"`
	Model              string   `json:"model"`
	Version            string   `json:"version"`
	TokenEstimate      int      `json:"tokenEstimate"`
	InputTokenEstimate int      `json:"inputTokenEstimate"`
	Variables          []string `json:"variables"`
	Snippets           []string `json:"snippets"`
	Dependencies       []string `json:"dependencies"`
}

type AnalysisSummary struct {
	TotalPrompts int `json:"totalPrompts"`
	TotalTokens  int `json:"totalTokens"`
}

// Analysis is a token and dependency report over every root prompt.
type Analysis struct {
	Prompts         []PromptAnalysis    `json:"prompts"`
	Summary         AnalysisSummary     `json:"summary"`
	DependencyGraph map[string][]string `json:"dependencyGraph"`
	Errors          []ir.Diagnostic     `json:"errors"`
}

// Analyze resolves every root prompt and estimates its token cost.
// Snippets are skipped.
func (e *Engine) Analyze(files []*ir.SourceFile) *Analysis {
	a := &Analysis{
		Prompts:         []PromptAnalysis{},
		DependencyGraph: make(map[string][]string),
		Errors:          []ir.Diagnostic{},
	}

	for _, f := range files {
		def, res, err := e.load(f)
		if err != nil {
			a.Errors = append(a.Errors, ir.NewDiagnostic(f.RelPath, err))
			continue
		}
		if def.Snippet {
			continue
		}

		deps, err := e.relativeDeps(res.Dependencies)
		if err != nil {
			a.Errors = append(a.Errors, ir.NewDiagnostic(f.RelPath, err))
			continue
		}

		version := def.Version
		if version == "" {
			version = e.cfg.DefaultVersion
		}

		p := PromptAnalysis{
			File:               f.RelPath,
			Module:             emit.ModuleName(f.RelPath),
			Model:              def.Model,
			Version:            version,
			TokenEstimate:      tokens.Estimate(res.Body),
			InputTokenEstimate: tokens.EstimateFixed(res.Body),
			Variables:          nonNil(def.Variables),
			Snippets:           nonNil(def.Snippets),
			Dependencies:       deps,
		}
		a.Prompts = append(a.Prompts, p)
		a.DependencyGraph[p.Module] = deps
		a.Summary.TotalTokens += p.TokenEstimate
	}
	a.Summary.TotalPrompts = len(a.Prompts)
	return a
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ModuleSchema is the resolved interface of one root prompt.
type ModuleSchema struct {
	Module  string
	Source  string
	Inputs  ir.Schema
	Outputs ir.Schema
}

// Schemas resolves the merged input and output schema of every root prompt,
// ordered by source path.
func (e *Engine) Schemas(files []*ir.SourceFile) ([]ModuleSchema, []ir.Diagnostic) {
	var out []ModuleSchema
	var diags []ir.Diagnostic
	for _, f := range files {
		def, res, err := e.load(f)
		if err != nil {
			diags = append(diags, ir.NewDiagnostic(f.RelPath, err))
			continue
		}
		if def.Snippet {
			continue
		}
		out = append(out, ModuleSchema{
			Module:  emit.ModuleName(f.RelPath),
			Source:  f.RelPath,
			Inputs:  res.Inputs,
			Outputs: def.Outputs,
		})
	}
	return out, diags
}
