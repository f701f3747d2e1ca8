package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/YAOSGit/prompt-opm/internal/config"
	"github.com/YAOSGit/prompt-opm/internal/emitter"
	"github.com/YAOSGit/prompt-opm/internal/engine"
	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/internal/state"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
	"github.com/spf13/cobra"
)

// project bundles what every command needs.
type project struct {
	dir      string
	cfg      *ir.Config
	engine   *engine.Engine
	manifest *state.Manager
}

// projectDir returns the directory commands operate in.
func projectDir() (string, error) {
	if workDir != "" {
		return filepath.Abs(workDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// loadProject loads the configuration and wires the engine.
func loadProject(cmd *cobra.Command) (*project, error) {
	dir, err := projectDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cmd.Context(), dir, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	registry, err := emitter.Load(cfg.Targets)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewEngine(cfg, registry)
	if err != nil {
		return nil, err
	}

	return &project{
		dir:      dir,
		cfg:      cfg,
		engine:   eng,
		manifest: state.NewManager(cfg.ManifestDir()),
	}, nil
}

// scan lists the project's definitions.
func (p *project) scan() ([]*ir.SourceFile, error) {
	files, err := p.engine.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", p.rel(p.cfg.Source), err)
	}
	return files, nil
}

// rel renders an absolute path relative to the project directory.
func (p *project) rel(path string) string {
	if r, err := filepath.Rel(p.dir, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}

func renderWarnings(w io.Writer, warnings []string) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "%s %s\n", paint(colorYellow, "WARN:"), warn)
	}
}

func renderDiagnostics(w io.Writer, diags []ir.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s %s\n", paint(colorRed, fmt.Sprintf("ERROR [%s] (%s):", d.Path, d.Kind)), d.Message)
	}
}

// renderPlanChanges prints one line per definition that a build would touch.
func renderPlanChanges(w io.Writer, result *engine.BuildResult) int {
	failed := make(map[string]ir.Diagnostic, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		failed[d.Path] = d
	}

	count := 0
	for _, change := range result.Plan.Changes {
		if change.Action == ir.ActionNoop {
			continue
		}
		name := change.Path
		if d, ok := failed[change.Path]; ok {
			fmt.Fprintln(w, paint(colorRed, fmt.Sprintf("  ! %s (error: %s)", name, d.Message)))
			count++
			continue
		}
		switch {
		case change.Action == ir.ActionCreate:
			fmt.Fprintln(w, paint(colorGreen, fmt.Sprintf("  + %s (new, %s)", name, change.ToVersion)))
		case change.Bump != ir.BumpNone:
			fmt.Fprintln(w, paint(colorYellow, fmt.Sprintf("  ~ %s (%s bump %s -> %s)", name, change.Bump, change.FromVersion, change.ToVersion)))
		default:
			fmt.Fprintln(w, paint(colorYellow, fmt.Sprintf("  ~ %s (regenerate: %s)", name, describeReason(change))))
		}
		count++
	}

	for _, rel := range result.Plan.Removed {
		fmt.Fprintln(w, paint(colorRed, fmt.Sprintf("  - %s (removed)", rel)))
		count++
	}
	return count
}

func describeReason(change *ir.Change) string {
	if change.Reason == ir.ReasonDependency && change.Cause != "" {
		return "dependency " + change.Cause
	}
	return string(change.Reason)
}

func moduleName(rel string) string {
	return emit.ModuleName(rel)
}
