package engine

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/YAOSGit/prompt-opm/internal/fileutil"
	"github.com/YAOSGit/prompt-opm/internal/hasher"
	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/internal/logging"
	"github.com/YAOSGit/prompt-opm/internal/parser"
	"github.com/YAOSGit/prompt-opm/internal/state"
	"github.com/YAOSGit/prompt-opm/internal/tokens"
	"github.com/YAOSGit/prompt-opm/pkg/emit"
)

// BuildEvent represents a progress event during a build.
type BuildEvent struct {
	Path     string
	Action   ir.Action
	Status   string // "started", "completed", "skipped", "failed"
	Bump     ir.Bump
	Version  string
	Duration time.Duration
	Error    error
}

// BuildCallback is called for each build event if set.
type BuildCallback func(event BuildEvent)

// BuildOptions control one build.
type BuildOptions struct {
	// DryRun computes versions and artifacts without touching sources,
	// outputs or the manifest.
	DryRun   bool
	Callback BuildCallback
}

// BuildResult is the outcome of one build.
type BuildResult struct {
	Plan     *ir.Plan
	Manifest *ir.Manifest

	Generated   []string // definitions rebuilt
	Skipped     []string // clean definitions carried forward
	Diagnostics []ir.Diagnostic
	Warnings    []string

	// Written and Deleted are output files relative to the output directory.
	Written []string
	Deleted []string

	errs []error
}

// Err aggregates the per-definition failures of the build.
func (r *BuildResult) Err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d definition(s) failed: %w", len(r.errs), errors.Join(r.errs...))
}

func (r *BuildResult) fail(rel string, err error) {
	diag := ir.NewDiagnostic(rel, err)
	r.Diagnostics = append(r.Diagnostics, diag)
	r.errs = append(r.errs, fmt.Errorf("%s: %w", rel, err))
	logging.Warn("definition failed", "path", rel, "kind", diag.Kind, "error", err)
}

// Build executes plan: dirty definitions are rebuilt, clean ones carried
// forward from prev unchanged. Failures are recorded per definition and never
// stop the batch; the returned error is reserved for failures that make the
// whole build meaningless, such as cancellation.
func (e *Engine) Build(ctx context.Context, files []*ir.SourceFile, plan *ir.Plan, prev *ir.Manifest, opts BuildOptions) (*BuildResult, error) {
	emitEvent := func(event BuildEvent) {
		if opts.Callback != nil {
			opts.Callback(event)
		}
	}

	now := e.now().UTC()
	manifest := &ir.Manifest{
		GeneratedAt: now.Format(time.RFC3339),
		Files:       make(map[string]ir.ManifestEntry, len(files)),
	}
	if prev != nil && prev.Lineage != "" {
		manifest.Lineage = prev.Lineage
	} else {
		manifest.Lineage = state.NewManifest().Lineage
	}

	result := &BuildResult{Plan: plan, Manifest: manifest}

	sorted := slices.Clone(files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelPath < sorted[j].RelPath })

	// Module names claimed by root prompts, carried-forward ones first.
	modules := make(map[string]string)
	for _, f := range sorted {
		if plan.IsDirty(f.RelPath) {
			continue
		}
		if entry, ok := prev.Entry(f.RelPath); ok && !entry.Snippet {
			modules[emit.ModuleName(f.RelPath)] = f.RelPath
		}
	}

	for _, f := range sorted {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("build cancelled: %w", err)
		}

		rel := f.RelPath
		change := plan.Change(rel)
		if change == nil {
			change = &ir.Change{Path: rel, Action: ir.ActionNoop}
		}

		if !plan.IsDirty(rel) {
			if entry, ok := prev.Entry(rel); ok {
				entry.Dependencies = slices.Clone(entry.Dependencies)
				manifest.Files[rel] = *entry
			}
			result.Skipped = append(result.Skipped, rel)
			emitEvent(BuildEvent{Path: rel, Action: ir.ActionNoop, Status: "skipped"})
			logging.Debug("definition clean", "path", rel)
			continue
		}

		start := time.Now()
		emitEvent(BuildEvent{Path: rel, Action: change.Action, Status: "started"})

		b := &definitionBuild{
			engine:  e,
			file:    f,
			change:  change,
			plan:    plan,
			dryRun:  opts.DryRun,
			now:     now,
			modules: modules,
		}
		b.prev, _ = prev.Entry(rel)

		entry, err := b.run()
		result.Warnings = append(result.Warnings, b.warnings...)
		result.Written = append(result.Written, b.written...)
		if err != nil {
			result.fail(rel, err)
			// A failed definition keeps its previous entry, so the next
			// successful build bumps from the last emitted version. A root
			// prompt also keeps its outputs and module slot.
			if b.prev != nil {
				kept := *b.prev
				kept.Dependencies = slices.Clone(kept.Dependencies)
				manifest.Files[rel] = kept
				if _, taken := modules[emit.ModuleName(rel)]; !taken && !kept.Snippet {
					modules[emit.ModuleName(rel)] = rel
				}
			}
			emitEvent(BuildEvent{Path: rel, Action: change.Action, Status: "failed", Duration: time.Since(start), Error: err})
			continue
		}

		manifest.Files[rel] = *entry
		result.Generated = append(result.Generated, rel)
		if change.Bump != ir.BumpNone {
			logging.Info("version bumped", "path", rel, "bump", change.Bump, "from", change.FromVersion, "to", change.ToVersion)
		}
		emitEvent(BuildEvent{
			Path:     rel,
			Action:   change.Action,
			Status:   "completed",
			Bump:     change.Bump,
			Version:  entry.Version,
			Duration: time.Since(start),
		})
	}

	deleted, err := e.removeStale(plan, prev, modules, opts.DryRun)
	result.Deleted = deleted
	if err != nil {
		result.errs = append(result.errs, err)
		logging.Warn("failed to remove stale outputs", "error", err)
	}

	written, err := e.finalize(modules, opts.DryRun)
	result.Written = append(result.Written, written...)
	if err != nil {
		result.errs = append(result.errs, err)
		logging.Warn("failed to finalize outputs", "error", err)
	}

	sort.Strings(result.Written)
	logging.Debug("build finished",
		"generated", len(result.Generated),
		"skipped", len(result.Skipped),
		"failed", len(result.Diagnostics))
	return result, nil
}

// Run reads the manifest from backend, scans the source tree, plans and
// builds, then writes the manifest back. Running it twice without source
// changes regenerates nothing and leaves the manifest untouched.
func (e *Engine) Run(ctx context.Context, backend state.Backend, opts BuildOptions) (*BuildResult, error) {
	prev, err := backend.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	files, err := e.Scan()
	if err != nil {
		return nil, err
	}

	plan := e.CreatePlan(files, prev)
	result, err := e.Build(ctx, files, plan, prev, opts)
	if err != nil {
		return result, err
	}

	if opts.DryRun || (len(plan.Dirty) == 0 && len(plan.Removed) == 0) {
		return result, nil
	}
	if err := backend.Write(ctx, result.Manifest); err != nil {
		return result, fmt.Errorf("failed to write manifest: %w", err)
	}
	return result, nil
}

// definitionBuild rebuilds one dirty definition.
type definitionBuild struct {
	engine  *Engine
	file    *ir.SourceFile
	prev    *ir.ManifestEntry
	change  *ir.Change
	plan    *ir.Plan
	dryRun  bool
	now     time.Time
	modules map[string]string

	warnings []string
	written  []string
}

func (b *definitionBuild) run() (*ir.ManifestEntry, error) {
	e := b.engine
	rel := b.file.RelPath

	def, err := parser.Parse(b.file.Content, b.file.Path)
	if err != nil {
		return nil, err
	}

	res, err := e.resolver.Resolve(def)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		b.warnings = append(b.warnings, rel+": "+w)
	}

	deps, err := e.relativeDeps(res.Dependencies)
	if err != nil {
		return nil, err
	}

	outputs := def.Outputs
	if def.Snippet {
		outputs = nil
	}

	var module string
	if !def.Snippet {
		module = emit.ModuleName(rel)
		if owner, taken := b.modules[module]; taken && owner != rel {
			return nil, &ir.Error{Kind: ir.DiagParse, Path: rel, Msg: fmt.Sprintf("duplicate module name %q (also defined by %s)", module, owner)}
		}
	}

	interfaceHash := hasher.HashSchema(res.Inputs, outputs)
	dirtyDependency := b.change.Reason == ir.ReasonDependency
	for _, dep := range deps {
		if b.plan.IsDirty(dep) {
			dirtyDependency = true
			break
		}
	}

	bump := DecideBump(b.prev, b.file.Hash, interfaceHash, dirtyDependency)
	base := def.Version
	if base == "" && b.prev != nil {
		base = b.prev.Version
	}
	if base == "" {
		base = e.cfg.DefaultVersion
	}
	version, err := BumpVersion(base, bump)
	if err != nil {
		return nil, &ir.Error{Kind: ir.DiagParse, Path: rel, Msg: "invalid version", Err: err}
	}

	content := b.file.Content
	// Only a bump rewrites the source. Snippets without a declared version
	// are versioned in the manifest only.
	if bump != ir.BumpNone && (!def.Snippet || def.Version != "") {
		content, err = parser.SetVersion(content, version)
		if err != nil {
			return nil, &ir.Error{Kind: ir.DiagParse, Path: rel, Msg: "failed to write version", Err: err}
		}
		if !b.dryRun {
			if err := fileutil.ReplaceContent(b.file.Path, []byte(content)); err != nil {
				return nil, fmt.Errorf("failed to update version in %s: %w", rel, err)
			}
		}
	}
	contentHash := hasher.HashContent(content)

	b.change.Bump = bump
	b.change.ToVersion = version

	entry := &ir.ManifestEntry{
		Version:            version,
		ContentHash:        contentHash,
		InputsHash:         interfaceHash,
		OutputsHash:        hasher.HashOutputs(outputs),
		Dependencies:       deps,
		TokenEstimate:      tokens.Estimate(res.Body),
		InputTokenEstimate: tokens.EstimateFixed(res.Body),
		Snippet:            def.Snippet,
	}

	if def.Snippet {
		return entry, nil
	}

	in := &emit.Input{
		Module: module,
		Source: rel,
		Model:  def.Model,
		Config: def.Config,
		Meta: emit.Meta{
			Version:            version,
			LastUpdated:        b.now.Format(time.RFC3339),
			SourceFile:         rel,
			ContentHash:        contentHash,
			TokenEstimate:      entry.TokenEstimate,
			InputTokenEstimate: entry.InputTokenEstimate,
		},
		Inputs:   res.Inputs,
		Outputs:  outputs,
		Template: res.Body,
		Package:  e.cfg.Package,
	}

	artifacts, err := e.render(in)
	if err != nil {
		return nil, err
	}
	entry.ArtifactHash = artifactHash(artifacts)

	written, err := e.writeOutputs(artifacts, b.dryRun)
	b.written = append(b.written, written...)
	if err != nil {
		return nil, err
	}

	b.modules[module] = rel
	return entry, nil
}

// render runs every registered emitter over in.
func (e *Engine) render(in *emit.Input) ([]emit.File, error) {
	var files []emit.File
	for _, em := range e.registry.All() {
		out, err := em.Emit(in)
		if err != nil {
			return nil, &ir.Error{Kind: ir.DiagSchema, Path: in.Source, Msg: fmt.Sprintf("%s target failed", em.Name()), Err: err}
		}
		files = append(files, out...)
	}
	return files, nil
}

func (e *Engine) writeOutputs(files []emit.File, dryRun bool) ([]string, error) {
	var written []string
	for _, f := range files {
		target := filepath.Join(e.cfg.Output, filepath.FromSlash(f.Path))
		changed, err := fileutil.WriteIfChanged(target, f.Content, dryRun)
		if err != nil {
			return written, fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
		if changed {
			written = append(written, f.Path)
		}
	}
	return written, nil
}

// removeStale deletes the outputs of root prompts that no longer exist.
func (e *Engine) removeStale(plan *ir.Plan, prev *ir.Manifest, modules map[string]string, dryRun bool) ([]string, error) {
	var deleted []string
	var errs []error
	for _, rel := range plan.Removed {
		entry, ok := prev.Entry(rel)
		if !ok || entry.Snippet {
			continue
		}
		module := emit.ModuleName(rel)
		if _, live := modules[module]; live {
			continue
		}
		for _, em := range e.registry.All() {
			for _, out := range em.Outputs(module) {
				removed, err := fileutil.RemoveIfExists(filepath.Join(e.cfg.Output, filepath.FromSlash(out)), dryRun)
				if err != nil {
					errs = append(errs, fmt.Errorf("failed to remove %s: %w", out, err))
					continue
				}
				if removed {
					deleted = append(deleted, out)
				}
			}
		}
		logging.Info("definition removed", "path", rel)
	}
	sort.Strings(deleted)
	return deleted, errors.Join(errs...)
}

// finalize writes the per-target files covering every live module.
func (e *Engine) finalize(modules map[string]string, dryRun bool) ([]string, error) {
	names := make([]string, 0, len(modules))
	for m := range modules {
		names = append(names, m)
	}
	sort.Strings(names)

	var written []string
	var errs []error
	for _, em := range e.registry.All() {
		files, err := em.Finalize(names, e.cfg.Package)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to finalize %s target: %w", em.Name(), err))
			continue
		}
		out, err := e.writeOutputs(files, dryRun)
		written = append(written, out...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return written, errors.Join(errs...)
}

// relativeDeps converts resolved dependency paths to manifest keys, dropping
// repeats.
func (e *Engine) relativeDeps(abs []string) ([]string, error) {
	deps := make([]string, 0, len(abs))
	for _, p := range abs {
		rel, err := e.scanner.RelPath(p)
		if err != nil {
			return nil, fmt.Errorf("failed to relativize %s: %w", p, err)
		}
		rel = path.Clean(rel)
		if !slices.Contains(deps, rel) {
			deps = append(deps, rel)
		}
	}
	return deps, nil
}

func artifactHash(files []emit.File) string {
	sorted := slices.Clone(files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	var b strings.Builder
	for _, f := range sorted {
		b.WriteString(f.Path)
		b.WriteByte(0)
		b.Write(f.Content)
		b.WriteByte(0)
	}
	return hasher.HashContent(b.String())
}
