package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/YAOSGit/prompt-opm/internal/emitter"
	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/internal/logging"
	"github.com/YAOSGit/prompt-opm/internal/resolver"
	"github.com/YAOSGit/prompt-opm/internal/scanner"
)

// Engine plans and runs incremental builds of one source tree.
type Engine struct {
	cfg      *ir.Config
	registry *emitter.Registry
	scanner  *scanner.Scanner
	resolver *resolver.Resolver

	// Now stamps manifests and generated metadata.
	Now func() time.Time
}

// NewEngine creates an engine for cfg. Source and output paths in cfg should
// already be resolved; relative paths are taken from the working directory.
func NewEngine(cfg *ir.Config, registry *emitter.Registry) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing configuration")
	}
	if registry == nil {
		registry = emitter.NewRegistry()
	}

	sc, err := scanner.New(cfg.Source, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		registry: registry,
		scanner:  sc,
		resolver: resolver.New(sc.Root(), excludingLoader(sc)),
		Now:      time.Now,
	}, nil
}

// excludingLoader reads definitions from disk but refuses files the scanner
// skips, since their edits would never reach the plan.
func excludingLoader(sc *scanner.Scanner) resolver.Loader {
	return resolver.LoaderFunc(func(path string) (*ir.Definition, error) {
		if sc.Excluded(path) {
			return nil, resolver.ErrExcluded
		}
		return resolver.FileLoader{}.Load(path)
	})
}

// Config returns the engine configuration.
func (e *Engine) Config() *ir.Config {
	return e.cfg
}

// Scan lists and fingerprints every definition below the source root.
func (e *Engine) Scan() ([]*ir.SourceFile, error) {
	return e.scanner.Scan()
}

// CreatePlan computes the dirty set of files against the previous manifest.
//
// A file is dirty when it has no entry, its content hash differs or its entry
// is tainted. Dirtiness then propagates to every recorded dependent, using the
// dependency lists stored in prev. Entries whose file is gone seed the
// propagation too.
func (e *Engine) CreatePlan(files []*ir.SourceFile, prev *ir.Manifest) *ir.Plan {
	plan := &ir.Plan{
		Metadata: &ir.PlanMetadata{
			Timestamp: e.now().UTC().Format(time.RFC3339),
		},
		Dirty:   make(map[string]bool),
		Changes: []*ir.Change{},
		Summary: &ir.PlanSummary{},
	}
	if prev != nil {
		plan.Metadata.Lineage = prev.Lineage
	}

	present := make(map[string]*ir.SourceFile, len(files))
	for _, f := range files {
		present[f.RelPath] = f
	}

	paths := make([]string, 0, len(files))
	for rel := range present {
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	// 1. Direct dirtiness
	changes := make(map[string]*ir.Change, len(paths))
	var worklist []string
	for _, rel := range paths {
		f := present[rel]
		change := &ir.Change{Path: rel, Action: ir.ActionNoop}
		entry, ok := prev.Entry(rel)
		switch {
		case !ok:
			change.Action, change.Reason = ir.ActionCreate, ir.ReasonNew
		case entry.ContentHash != f.Hash:
			change.Action, change.Reason = ir.ActionUpdate, ir.ReasonContent
		case entry.Tainted:
			change.Action, change.Reason = ir.ActionUpdate, ir.ReasonTainted
		}
		if ok {
			change.FromVersion = entry.Version
		}
		if change.Action != ir.ActionNoop {
			plan.Dirty[rel] = true
			worklist = append(worklist, rel)
		}
		changes[rel] = change
	}

	// 2. Removed entries
	if prev != nil {
		for rel := range prev.Files {
			if _, ok := present[rel]; !ok {
				plan.Removed = append(plan.Removed, rel)
			}
		}
		sort.Strings(plan.Removed)
		worklist = append(worklist, plan.Removed...)
	}

	// 3. Transitive dirtiness over the previous dependency edges
	rev := reverseEdges(prev)
	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]
		for _, dependent := range rev[cur] {
			change, ok := changes[dependent]
			if !ok || plan.Dirty[dependent] {
				continue
			}
			plan.Dirty[dependent] = true
			change.Action = ir.ActionUpdate
			change.Reason = ir.ReasonDependency
			change.Cause = cur
			worklist = append(worklist, dependent)
		}
	}

	for _, rel := range paths {
		change := changes[rel]
		plan.Changes = append(plan.Changes, change)
		switch change.Action {
		case ir.ActionCreate:
			plan.Summary.Create++
		case ir.ActionUpdate:
			plan.Summary.Update++
		default:
			plan.Summary.NoOp++
		}
	}
	plan.Summary.Removed = len(plan.Removed)

	logging.Debug("plan created",
		"files", len(files),
		"dirty", len(plan.Dirty),
		"removed", len(plan.Removed))
	return plan
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
