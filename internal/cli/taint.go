package cli

import (
	"fmt"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/spf13/cobra"
)

var taintCmd = &cobra.Command{
	Use:   "taint <definition>...",
	Short: "Force definitions to be regenerated",
	Long: `Marks definitions as tainted, forcing them and every prompt that includes
them to be regenerated on the next build. Tainting alone does not bump versions.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTaint,
}

var untaintCmd = &cobra.Command{
	Use:   "untaint <definition>...",
	Short: "Remove the taint mark from definitions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUntaint,
}

func runTaint(cmd *cobra.Command, args []string) error {
	return editManifest(cmd, args, func(m *ir.Manifest, rel string) string {
		entry := m.Files[rel]
		entry.Tainted = true
		m.Files[rel] = entry
		return fmt.Sprintf("Definition %s has been tainted. It will be regenerated on the next build.", rel)
	})
}

func runUntaint(cmd *cobra.Command, args []string) error {
	return editManifest(cmd, args, func(m *ir.Manifest, rel string) string {
		entry := m.Files[rel]
		entry.Tainted = false
		m.Files[rel] = entry
		return fmt.Sprintf("Definition %s has been untainted.", rel)
	})
}
