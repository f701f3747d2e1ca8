package state

import (
	"context"
	"maps"
	"slices"

	"github.com/YAOSGit/prompt-opm/internal/ir"
)

// Backend defines the interface for manifest storage.
// Storage is local and single-writer: the last writer wins.
type Backend interface {
	// Read loads the manifest from the backend.
	Read(ctx context.Context) (*ir.Manifest, error)

	// Write saves the manifest to the backend.
	Write(ctx context.Context, manifest *ir.Manifest) error
}

var (
	_ Backend = (*Manager)(nil)
	_ Backend = (*MemoryBackend)(nil)
)

// MemoryBackend keeps the manifest in memory. Used for dry runs and tests.
type MemoryBackend struct {
	manifest *ir.Manifest
	writes   int
}

// NewMemoryBackend returns a backend seeded with a copy of manifest, which may be nil.
func NewMemoryBackend(manifest *ir.Manifest) *MemoryBackend {
	return &MemoryBackend{manifest: Clone(manifest)}
}

func (b *MemoryBackend) Read(ctx context.Context) (*ir.Manifest, error) {
	if b.manifest == nil {
		return NewManifest(), nil
	}
	return Clone(b.manifest), nil
}

func (b *MemoryBackend) Write(ctx context.Context, manifest *ir.Manifest) error {
	b.manifest = Clone(manifest)
	b.writes++
	return nil
}

// Writes returns how many times the manifest has been written.
func (b *MemoryBackend) Writes() int {
	return b.writes
}

// Clone deep-copies a manifest.
func Clone(m *ir.Manifest) *ir.Manifest {
	if m == nil {
		return nil
	}
	out := &ir.Manifest{
		Lineage:     m.Lineage,
		GeneratedAt: m.GeneratedAt,
		Files:       make(map[string]ir.ManifestEntry, len(m.Files)),
	}
	for path, entry := range m.Files {
		entry.Dependencies = slices.Clone(entry.Dependencies)
		out.Files[path] = entry
	}
	return out
}

// Paths returns the manifest's definition paths, sorted.
func Paths(m *ir.Manifest) []string {
	if m == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(m.Files))
}
