package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/apple/pkl-go/pkl"
)

// PklLoader evaluates Pkl configuration modules.
type PklLoader struct {
	projectDir string
}

// NewPklLoader returns a loader that evaluates modules within projectDir.
func NewPklLoader(projectDir string) *PklLoader {
	return &PklLoader{projectDir: projectDir}
}

// Load evaluates the module at path into a configuration.
// A project evaluator is used when the directory holds a PklProject file.
func (l *PklLoader) Load(ctx context.Context, path string) (*ir.Config, error) {
	opts := []func(*pkl.EvaluatorOptions){pkl.PreconfiguredOptions}
	evaluator, err := l.newEvaluator(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pkl evaluator: %w", err)
	}
	defer evaluator.Close()

	var cfg ir.Config
	if err := evaluator.EvaluateModule(ctx, pkl.FileSource(path), &cfg); err != nil {
		return nil, fmt.Errorf("failed to evaluate config: %w", err)
	}
	return &cfg, nil
}

func (l *PklLoader) newEvaluator(ctx context.Context, opts []func(*pkl.EvaluatorOptions)) (pkl.Evaluator, error) {
	if !hasPklProject(l.projectDir) {
		return pkl.NewEvaluator(ctx, opts...)
	}
	u, err := url.Parse("file://" + l.projectDir + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse project directory URL: %w", err)
	}
	return pkl.NewProjectEvaluator(ctx, u, opts...)
}

func hasPklProject(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "PklProject"))
	return err == nil
}
