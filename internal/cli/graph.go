package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Output the snippet dependency graph in DOT format",
	Long: `Generates a visual representation of which prompts include which
snippets, in Graphviz DOT format. Pipe the output to 'dot' to render it:

  prompt-opm graph | dot -Tpng > graph.png`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	files, err := p.scan()
	if err != nil {
		return err
	}

	dag, diags := p.engine.Graph(files)
	renderDiagnostics(cmd.ErrOrStderr(), diags)

	fmt.Fprint(cmd.OutOrStdout(), dag.DOT())
	return nil
}
