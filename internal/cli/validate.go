package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every definition without emitting files",
	Long: `Parses and resolves every definition. Template variables that no input
declares are errors; declared inputs a prompt never uses are warnings.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	files, err := p.scan()
	if err != nil {
		return err
	}

	report := p.engine.Validate(files)
	renderWarnings(errOut, report.Warnings)
	renderDiagnostics(errOut, report.Diagnostics)

	if err := report.Err(); err != nil {
		fmt.Fprintf(errOut, "Found %d error(s) in %d file(s).\n", len(report.Diagnostics), report.Checked)
		return err
	}
	fmt.Fprintf(out, "Validated %d file(s), no errors.\n", report.Checked)
	return nil
}
