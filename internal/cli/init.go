package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/YAOSGit/prompt-opm/internal/config"
	"github.com/YAOSGit/prompt-opm/internal/fileutil"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new prompt-opm project",
	Long:  `Creates the configuration file and an example prompt. Existing files are left untouched.`,
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

const examplePrompt = `---
model: "gemini-1.5-pro"
version: "0.1.0"
config:
  temperature: 0.7
  maxTokens: 256
inputs:
  name: string
outputs:
  greeting: string
---
Write a friendly greeting for {{ name }}.
`

type initConfig struct {
	Source string `json:"source"`
	Output string `json:"output"`
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dir, err := projectDir()
	if err != nil {
		return err
	}

	cfg, err := json.MarshalIndent(initConfig{Source: "./.prompts", Output: "./src/generated/prompts"}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	files := []struct {
		path    string
		content []byte
	}{
		{filepath.Join(dir, config.DefaultFile), append(cfg, '\n')},
		{filepath.Join(dir, ".prompts", "hello.prompt.md"), []byte(examplePrompt)},
	}

	for _, f := range files {
		created, err := fileutil.WriteIfMissing(f.path, f.content, 0644)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", f.path, err)
		}
		rel, _ := filepath.Rel(dir, f.path)
		if created {
			fmt.Fprintf(out, "Created %s\n", filepath.ToSlash(rel))
		} else {
			fmt.Fprintf(out, "Kept existing %s\n", filepath.ToSlash(rel))
		}
	}

	fmt.Fprintln(out, "\nprompt-opm initialized successfully!")
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Edit .prompts/hello.prompt.md or add more *.prompt.md files")
	fmt.Fprintln(out, "  2. Run 'prompt-opm diff' to preview what will be generated")
	fmt.Fprintln(out, "  3. Run 'prompt-opm generate' to build the prompt modules")
	return nil
}
