package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/google/uuid"
)

// FileName is the manifest file written into the manifest directory.
const FileName = ".prompt-opm.manifest.json"

// Manager handles reading and writing of the manifest file.
type Manager struct {
	path string
}

// NewManager returns a manager for the manifest stored in dir.
func NewManager(dir string) *Manager {
	return &Manager{path: filepath.Join(dir, FileName)}
}

// Path returns the manifest file path.
func (m *Manager) Path() string {
	return m.path
}

// Read loads the manifest from the configured path.
// A missing file yields an empty manifest with a fresh lineage.
func (m *Manager) Read(ctx context.Context) (*ir.Manifest, error) {
	raw, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", m.path, err)
	}

	manifest, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest from %s: %w", m.path, err)
	}
	return manifest, nil
}

// Write saves the manifest to the configured path, replacing the file.
func (m *Manager) Write(ctx context.Context, manifest *ir.Manifest) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	content, err := Encode(manifest)
	if err != nil {
		return err
	}

	if err := os.WriteFile(m.path, content, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file %s: %w", m.path, err)
	}
	return nil
}

// NewManifest returns an empty manifest with a new lineage.
func NewManifest() *ir.Manifest {
	return &ir.Manifest{
		Lineage: uuid.NewString(),
		Files:   make(map[string]ir.ManifestEntry),
	}
}

// Decode parses manifest JSON. Manifests written without a lineage get one.
func Decode(raw []byte) (*ir.Manifest, error) {
	var manifest ir.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Lineage == "" {
		manifest.Lineage = uuid.NewString()
	}
	if manifest.Files == nil {
		manifest.Files = make(map[string]ir.ManifestEntry)
	}
	return &manifest, nil
}

// Encode renders the manifest as indented JSON with a trailing newline.
// Map keys are sorted by encoding/json, so output is deterministic.
func Encode(manifest *ir.Manifest) ([]byte, error) {
	content, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return append(content, '\n'), nil
}
