package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YAOSGit/prompt-opm/internal/logging"
	"github.com/YAOSGit/prompt-opm/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchInterval time.Duration
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild whenever a definition changes",
	Long: `Runs an initial build, then polls the source directory and rebuilds after
every change. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", watch.DefaultInterval, "Polling interval")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Quiet period before rebuilding")
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(watch.Options{
		Interval: watchInterval,
		Debounce: watchDebounce,
		Detector: watch.ScanDetector(p.engine.Scan),
		Logger:   logging.With("component", "watch"),
	})

	fmt.Fprintln(out, paint(colorDim, "Running initial build..."))
	if err := build(ctx, cmd, p, false); err != nil {
		logging.Warn("initial build failed", "error", err)
	}
	// Baseline right after the build so its own version write-backs do not
	// trigger a rebuild.
	if err := w.Prime(ctx); err != nil {
		logging.Warn("watch: baseline failed", "error", err)
	}

	fmt.Fprintf(out, "\nWatching %s for changes... %s\n", p.rel(p.cfg.Source), paint(colorDim, "(Ctrl+C to stop)"))
	return w.Run(ctx, func(ctx context.Context) error {
		fmt.Fprintln(out, paint(colorDim, "\nChange detected, rebuilding..."))
		return build(ctx, cmd, p, false)
	})
}
