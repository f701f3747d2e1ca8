package cli

import (
	"encoding/json"
	"fmt"

	"github.com/YAOSGit/prompt-opm/emitters/jsonschema"
	"github.com/spf13/cobra"
)

var schemaFormat string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export the input and output schema of every prompt",
	Long: `Prints one object per prompt module with the JSON Schema of its merged
inputs and of its outputs.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaFormat, "format", "jsonschema", "Output format (jsonschema)")
}

type moduleSchemas struct {
	Inputs  any `json:"inputs"`
	Outputs any `json:"outputs"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	if schemaFormat != "jsonschema" {
		return fmt.Errorf("unsupported format: %s", schemaFormat)
	}

	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	files, err := p.scan()
	if err != nil {
		return err
	}

	schemas, diags := p.engine.Schemas(files)
	renderDiagnostics(cmd.ErrOrStderr(), diags)

	doc := make(map[string]moduleSchemas, len(schemas))
	for _, s := range schemas {
		doc[s.Module] = moduleSchemas{
			Inputs:  jsonschema.ForSchema(s.Inputs),
			Outputs: jsonschema.ForSchema(s.Outputs),
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schemas: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if len(diags) > 0 {
		return fmt.Errorf("%d definition(s) failed to resolve", len(diags))
	}
	return nil
}
