// Package scanner discovers definition files below a source root.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/YAOSGit/prompt-opm/internal/hasher"
	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/bmatcuk/doublestar/v4"
)

// Pattern selects definition files relative to the source root.
const Pattern = "**/*.prompt.md"

// Scanner lists definition files, skipping paths matched by any exclude pattern.
type Scanner struct {
	root    string
	exclude []string
}

// New creates a scanner for root. Exclude patterns use doublestar syntax and
// are matched against slash-separated paths relative to root.
func New(root string, exclude []string) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source root %s: %w", root, err)
	}
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Scanner{root: abs, exclude: exclude}, nil
}

// Root returns the absolute source root.
func (s *Scanner) Root() string {
	return s.root
}

// Paths returns the relative paths of all definition files, sorted.
func (s *Scanner) Paths() ([]string, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	matches, err := doublestar.Glob(os.DirFS(s.root), Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		if s.excluded(m) {
			continue
		}
		paths = append(paths, m)
	}
	sort.Strings(paths)
	return paths, nil
}

// Scan reads every definition file and fingerprints its raw content.
func (s *Scanner) Scan() ([]*ir.SourceFile, error) {
	paths, err := s.Paths()
	if err != nil {
		return nil, err
	}

	files := make([]*ir.SourceFile, 0, len(paths))
	for _, rel := range paths {
		abs := filepath.Join(s.root, filepath.FromSlash(rel))
		content, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		files = append(files, &ir.SourceFile{
			Path:    abs,
			RelPath: rel,
			Content: string(content),
			Hash:    hasher.HashContent(string(content)),
		})
	}
	return files, nil
}

// RelPath converts an absolute path below the root to its slash-separated
// relative form.
func (s *Scanner) RelPath(abs string) (string, error) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Excluded reports whether the file at abs lies below the root and matches
// an exclude pattern.
func (s *Scanner) Excluded(abs string) bool {
	rel, err := s.RelPath(abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	return s.excluded(rel)
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
