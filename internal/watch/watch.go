// Package watch polls the source tree and reruns a build when it changes.
//
// Every Interval the detector returns a fingerprint of the tree. A new
// fingerprint starts the Debounce timer; further changes restart it. When the
// timer fires the action runs once. Actions never overlap.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/YAOSGit/prompt-opm/internal/hasher"
	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/internal/logging"
)

// Detector fingerprints the watched tree. Two different fingerprints mean
// something changed.
type Detector interface {
	Fingerprint(ctx context.Context) (string, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context) (string, error)

func (f DetectorFunc) Fingerprint(ctx context.Context) (string, error) {
	return f(ctx)
}

// ScanFunc lists the files of a tree with their content hashes.
type ScanFunc func() ([]*ir.SourceFile, error)

// ScanDetector fingerprints every scanned path and content hash.
func ScanDetector(scan ScanFunc) Detector {
	return DetectorFunc(func(ctx context.Context) (string, error) {
		files, err := scan()
		if err != nil {
			return "", err
		}
		lines := make([]string, 0, len(files))
		for _, f := range files {
			lines = append(lines, f.RelPath+"\x00"+f.Hash)
		}
		sort.Strings(lines)
		return hasher.HashContent(strings.Join(lines, "\n")), nil
	})
}

// Options tunes the watcher.
type Options struct {
	// Interval is the polling frequency. Default: 500ms.
	Interval time.Duration
	// Debounce is the quiet period after a change before the action fires.
	// 0 fires on the poll that saw the change.
	Debounce time.Duration
	Detector Detector
	Logger   *slog.Logger
}

const DefaultInterval = 500 * time.Millisecond

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Logger == nil {
		o.Logger = logging.Logger()
	}
}

// Stats are point-in-time counters.
type Stats struct {
	Checks  int64 `json:"checks"`
	Changes int64 `json:"changes"`
	Errors  int64 `json:"errors"`
	Builds  int64 `json:"builds"`
}

// Watcher runs an action whenever the detector reports a change.
type Watcher struct {
	opts Options

	baseline string
	primed   bool

	checks  atomic.Int64
	changes atomic.Int64
	errors  atomic.Int64
	builds  atomic.Int64
}

// New creates a watcher. opts.Detector is required.
func New(opts Options) *Watcher {
	opts.defaults()
	return &Watcher{opts: opts}
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Checks:  w.checks.Load(),
		Changes: w.changes.Load(),
		Errors:  w.errors.Load(),
		Builds:  w.builds.Load(),
	}
}

// Prime records the current fingerprint as the baseline for Run. Changes
// made between Prime and Run are picked up by the first poll.
func (w *Watcher) Prime(ctx context.Context) error {
	fp, err := w.opts.Detector.Fingerprint(ctx)
	if err != nil {
		w.errors.Add(1)
		return fmt.Errorf("failed to fingerprint watched tree: %w", err)
	}
	w.baseline, w.primed = fp, true
	return nil
}

// Run blocks until ctx is cancelled. The baseline is the fingerprint taken by
// Prime or, without one, the fingerprint observed when Run starts; only later
// changes trigger action. A failed action is logged and retried on the next
// change.
func (w *Watcher) Run(ctx context.Context, action func(ctx context.Context) error) error {
	log := w.opts.Logger

	current := w.baseline
	if !w.primed {
		fp, err := w.opts.Detector.Fingerprint(ctx)
		if err != nil {
			w.errors.Add(1)
			log.Warn("watch: initial check failed", "error", err)
		}
		current = fp
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	pending := ""

	log.Info("watch: started", "interval", w.opts.Interval, "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			log.Info("watch: stopped")
			return nil

		case <-ticker.C:
			w.checks.Add(1)
			fp, err := w.opts.Detector.Fingerprint(ctx)
			if err != nil {
				w.errors.Add(1)
				log.Warn("watch: check failed", "error", err)
				continue
			}
			if fp == current || fp == pending {
				continue
			}
			w.changes.Add(1)
			pending = fp

			if w.opts.Debounce <= 0 {
				current = w.fire(ctx, action, pending)
				pending = ""
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.opts.Debounce)
			debounceCh = debounceTimer.C
			log.Debug("watch: change detected, debouncing")

		case <-debounceCh:
			debounceCh = nil
			if pending != "" {
				current = w.fire(ctx, action, pending)
				pending = ""
			}
		}
	}
}

// fire runs action and returns the fingerprint to treat as current. The
// tree is fingerprinted again afterwards since a build rewrites versions into
// its sources.
func (w *Watcher) fire(ctx context.Context, action func(ctx context.Context) error, seen string) string {
	log := w.opts.Logger
	start := time.Now()
	if err := action(ctx); err != nil {
		w.errors.Add(1)
		log.Error("watch: build failed", "error", err)
	} else {
		w.builds.Add(1)
		log.Info("watch: build complete", "duration", time.Since(start))
	}

	fp, err := w.opts.Detector.Fingerprint(ctx)
	if err != nil {
		w.errors.Add(1)
		log.Warn("watch: check failed", "error", err)
		return seen
	}
	return fp
}
