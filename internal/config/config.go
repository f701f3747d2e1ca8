// Package config locates and loads the project configuration.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
	"github.com/YAOSGit/prompt-opm/internal/ir"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file written by init.
const DefaultFile = ".prompt-opm.config.json"

// FileNames lists the configuration files searched for, in order.
var FileNames = []string{
	DefaultFile,
	".prompt-opm.config.yaml",
	".prompt-opm.config.yml",
	".prompt-opm.config.pkl",
}

const (
	DefaultTarget  = "go"
	DefaultVersion = "0.1.0"
	DefaultPackage = "prompts"
)

// ErrNotFound is returned when no configuration file exists.
var ErrNotFound = errors.New("no configuration file found")

// Find returns the path of the configuration file in dir. An explicit path,
// relative to dir, wins over the search.
func Find(dir, explicit string) (string, error) {
	if explicit != "" {
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(dir, explicit)
		}
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("failed to read config %s: %w", explicit, err)
		}
		return explicit, nil
	}

	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to inspect %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%w in %s (run \"prompt-opm init\" to create one)", ErrNotFound, dir)
}

// Load finds, decodes and normalizes the configuration for dir.
func Load(ctx context.Context, dir, explicit string) (*ir.Config, error) {
	path, err := Find(dir, explicit)
	if err != nil {
		return nil, err
	}
	return LoadFile(ctx, path)
}

// LoadFile decodes the configuration at path. The format follows the file
// extension: .json, .yaml/.yml or .pkl.
func LoadFile(ctx context.Context, path string) (*ir.Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	var cfg *ir.Config
	switch ext := strings.ToLower(filepath.Ext(abs)); ext {
	case ".json":
		cfg, err = decodeJSON(abs)
	case ".yaml", ".yml":
		cfg, err = decodeYAML(abs)
	case ".pkl":
		cfg, err = NewPklLoader(filepath.Dir(abs)).Load(ctx, abs)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := Normalize(cfg, filepath.Dir(abs)); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath.Base(abs), err)
	}
	return cfg, nil
}

func decodeJSON(path string) (*ir.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var cfg ir.Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

func decodeYAML(path string) (*ir.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cfg ir.Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// Normalize validates cfg, fills defaults and makes every path absolute,
// resolving relative paths against baseDir.
func Normalize(cfg *ir.Config, baseDir string) error {
	if cfg.Source == "" {
		return fmt.Errorf("missing required field: source")
	}
	if cfg.Output == "" {
		return fmt.Errorf("missing required field: output")
	}

	cfg.Source = absolute(baseDir, cfg.Source)
	cfg.Output = absolute(baseDir, cfg.Output)
	if cfg.Manifest != "" {
		cfg.Manifest = absolute(baseDir, cfg.Manifest)
	}

	if len(cfg.Targets) == 0 {
		cfg.Targets = []string{DefaultTarget}
	}
	if cfg.Package == "" {
		cfg.Package = PackageName(cfg.Output)
	}
	if cfg.DefaultVersion == "" {
		cfg.DefaultVersion = DefaultVersion
	}
	if _, err := semver.StrictNewVersion(cfg.DefaultVersion); err != nil {
		return fmt.Errorf("invalid defaultVersion %q: %w", cfg.DefaultVersion, err)
	}
	return nil
}

// PackageName derives a Go package name from the output directory.
func PackageName(dir string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(filepath.Base(dir)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		return DefaultPackage
	}
	return name
}

func absolute(base, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}
