package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	versionLineRe = regexp.MustCompile(`^version\s*:`)
	modelLineRe   = regexp.MustCompile(`^model\s*:`)
)

// SetVersion rewrites the top-level version key of the frontmatter in content.
// When the key is absent it is inserted after the model line, or at the top
// of the frontmatter. The body and every other frontmatter line are kept
// byte for byte.
func SetVersion(content, version string) (string, error) {
	loc := frontmatterRe.FindStringSubmatchIndex(content)
	if loc == nil {
		return "", fmt.Errorf("failed to set version: missing frontmatter")
	}
	start, end := loc[2], loc[3]
	fm := content[start:end]

	newline := "\n"
	if strings.Contains(fm, "\r\n") {
		newline = "\r\n"
	}
	line := fmt.Sprintf("version: %q", version)

	lines := strings.Split(fm, newline)
	replaced := false
	insertAt := 0
	for i, l := range lines {
		switch {
		case versionLineRe.MatchString(l):
			lines[i] = line
			replaced = true
		case modelLineRe.MatchString(l):
			insertAt = i + 1
		}
		if replaced {
			break
		}
	}
	if !replaced {
		lines = append(lines, "")
		copy(lines[insertAt+1:], lines[insertAt:])
		lines[insertAt] = line
		if fm == "" {
			lines = lines[:1]
		}
	}

	return content[:start] + strings.Join(lines, newline) + content[end:], nil
}
