package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/YAOSGit/prompt-opm/internal/engine"
	"github.com/YAOSGit/prompt-opm/internal/parser"
	"github.com/spf13/cobra"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show token estimates and the dependency graph",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output in JSON format")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	files, err := p.scan()
	if err != nil {
		return err
	}
	a := p.engine.Analyze(files)

	if analyzeJSON {
		data, err := json.MarshalIndent(a, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal analysis: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	renderDiagnostics(cmd.ErrOrStderr(), a.Errors)
	if len(a.Prompts) == 0 {
		fmt.Fprintln(out, "No prompts found.")
		return nil
	}

	renderAnalysisTable(out, a)
	renderDependencyTree(out, a)
	fmt.Fprintf(out, "\n%d prompt(s), %d estimated token(s) in total.\n", a.Summary.TotalPrompts, a.Summary.TotalTokens)
	return nil
}

func renderAnalysisTable(w io.Writer, a *engine.Analysis) {
	headers := []string{"Prompt", "Model", "Ver", "Tokens", "Fixed", "Vars", "Snippets"}
	rightAlign := []bool{false, false, false, true, true, true, true}

	rows := make([][]string, 0, len(a.Prompts))
	for _, p := range a.Prompts {
		rows = append(rows, []string{
			p.Module,
			p.Model,
			p.Version,
			fmt.Sprint(p.TokenEstimate),
			fmt.Sprint(p.InputTokenEstimate),
			fmt.Sprint(len(p.Variables)),
			fmt.Sprint(len(p.Snippets)),
		})
	}

	widths := make([]int, len(headers))
	total := 0
	for i, h := range headers {
		widths[i] = len(h)
		for _, r := range rows {
			widths[i] = max(widths[i], len(r[i]))
		}
		widths[i] += 2
		total += widths[i]
	}

	format := func(cols []string) string {
		var b strings.Builder
		for i, col := range cols {
			if rightAlign[i] {
				fmt.Fprintf(&b, "%*s", widths[i], col)
			} else {
				fmt.Fprintf(&b, "%-*s", widths[i], col)
			}
		}
		return strings.TrimRight(b.String(), " ")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, format(headers))
	fmt.Fprintln(w, strings.Repeat("-", total))
	for _, r := range rows {
		fmt.Fprintln(w, format(r))
	}
}

func renderDependencyTree(w io.Writer, a *engine.Analysis) {
	hasDeps := false
	for _, p := range a.Prompts {
		if len(p.Dependencies) > 0 {
			hasDeps = true
			break
		}
	}
	if !hasDeps {
		return
	}

	fmt.Fprintln(w, "\nDependency Graph:")
	for _, p := range a.Prompts {
		fmt.Fprintf(w, " %s\n", p.Module)
		if len(p.Dependencies) == 0 {
			fmt.Fprintln(w, "   (no dependencies)")
			continue
		}
		for i, dep := range p.Dependencies {
			prefix := "├──"
			if i == len(p.Dependencies)-1 {
				prefix = "└──"
			}
			fmt.Fprintf(w, "   %s @%s\n", prefix, strings.TrimSuffix(dep, parser.FileSuffix))
		}
	}
}

