package cli

import (
	"context"

	"github.com/YAOSGit/prompt-opm/internal/logging"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	logFormat  string
	noColor    bool
	configPath string
	workDir    string
)

var rootCmd = &cobra.Command{
	Use:   "prompt-opm",
	Short: "Incremental build tool for prompt definitions",
	Long: `prompt-opm compiles *.prompt.md definitions into typed prompt modules.

Each build only regenerates what changed:
  • Content hashing decides which definitions are dirty
  • Snippet changes propagate to every prompt that includes them
  • Versions are bumped and written back into the definitions
  • A manifest records what was built`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(cmd.ErrOrStderr(), logLevel, logFormat)
	},
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "Run as if started in this directory")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(taintCmd)
	rootCmd.AddCommand(untaintCmd)
	rootCmd.AddCommand(versionCmd)
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
)

// colorize returns code unless colors are disabled.
func colorize(code string) string {
	if noColor {
		return ""
	}
	return code
}

func paint(code, s string) string {
	return colorize(code) + s + colorize(colorReset)
}
