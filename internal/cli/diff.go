package cli

import (
	"fmt"

	"github.com/YAOSGit/prompt-opm/internal/engine"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Preview what the next build would change",
	Long: `Runs the build without writing anything and lists, per definition:

  + new definitions
  ~ version bumps and forced regenerations
  - removed definitions
  ! definitions that fail to build`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	result, err := p.engine.Run(cmd.Context(), p.manifest, engine.BuildOptions{DryRun: true})
	if err != nil {
		return fmt.Errorf("failed to compute changes: %w", err)
	}

	if len(result.Plan.Dirty) == 0 && len(result.Plan.Removed) == 0 {
		fmt.Fprintln(out, paint(colorGreen, "No changes detected."))
		return nil
	}

	fmt.Fprintln(out, paint(colorBold, "Changes:"))
	renderPlanChanges(out, result)
	s := result.Plan.Summary
	fmt.Fprintf(out, "\n%d to create, %d to update, %d unchanged, %d removed.\n", s.Create, s.Update, s.NoOp, s.Removed)
	return nil
}
