package engine

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/YAOSGit/prompt-opm/internal/ir"
)

// DecideBump maps the change of one dirty definition to a version increment.
//
// A definition without a previous entry keeps its declared version. Unchanged
// content with no dirty dependency needs no bump. A content change that also
// changes the interface is a minor bump; anything else is a patch.
func DecideBump(prev *ir.ManifestEntry, contentHash, interfaceHash string, dirtyDependency bool) ir.Bump {
	if prev == nil {
		return ir.BumpNone
	}

	contentChanged := prev.ContentHash != contentHash
	if !contentChanged && !dirtyDependency {
		return ir.BumpNone
	}

	if contentChanged && prev.InputsHash != interfaceHash {
		return ir.BumpMinor
	}

	return ir.BumpPatch
}

// ParseVersion accepts strict MAJOR.MINOR.PATCH versions only.
func ParseVersion(version string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", version, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return nil, fmt.Errorf("invalid version %q: pre-release and build metadata are not supported", version)
	}
	return v, nil
}

// BumpVersion applies bump to version. A minor bump resets the patch number.
func BumpVersion(version string, bump ir.Bump) (string, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return "", err
	}

	switch bump {
	case ir.BumpNone:
		return v.String(), nil
	case ir.BumpPatch:
		next := v.IncPatch()
		return next.String(), nil
	case ir.BumpMinor:
		next := v.IncMinor()
		return next.String(), nil
	default:
		return "", fmt.Errorf("unknown bump %q", bump)
	}
}
