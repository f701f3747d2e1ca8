package cli

import (
	"context"
	"fmt"

	"github.com/YAOSGit/prompt-opm/internal/engine"
	"github.com/spf13/cobra"
)

var generateDryRun bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build every changed prompt definition",
	Long: `Scans the source directory, rebuilds the definitions that changed since
the last build (and every prompt that includes them), bumps their versions
and writes the generated modules and the manifest.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Compute the build without writing anything")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	return build(cmd.Context(), cmd, p, generateDryRun)
}

// build runs one incremental build and reports it.
func build(ctx context.Context, cmd *cobra.Command, p *project, dryRun bool) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	result, err := p.engine.Run(ctx, p.manifest, engine.BuildOptions{
		DryRun: dryRun,
		Callback: func(event engine.BuildEvent) {
			if event.Status == "completed" && event.Bump != "" {
				fmt.Fprintf(out, "  %s %s -> %s\n", event.Path, event.Bump, event.Version)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	renderWarnings(errOut, result.Warnings)
	renderDiagnostics(errOut, result.Diagnostics)

	verb := "Generated"
	if dryRun {
		verb = "Would generate"
	}
	fmt.Fprintf(out, "%s %s definition(s), skipped %s unchanged.\n",
		verb,
		paint(colorGreen, fmt.Sprint(len(result.Generated))),
		paint(colorDim, fmt.Sprint(len(result.Skipped))))
	if len(result.Deleted) > 0 {
		fmt.Fprintf(out, "Removed %d stale output file(s).\n", len(result.Deleted))
	}

	return result.Err()
}
