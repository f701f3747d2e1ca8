package engine

import (
	"testing"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideBump(t *testing.T) {
	prev := &ir.ManifestEntry{Version: "1.0.0", ContentHash: "c1", InputsHash: "i1"}

	tests := []struct {
		name      string
		prev      *ir.ManifestEntry
		content   string
		iface     string
		dirtyDeps bool
		want      ir.Bump
	}{
		{"first build", nil, "c2", "i2", true, ir.BumpNone},
		{"unchanged", prev, "c1", "i1", false, ir.BumpNone},
		{"body only", prev, "c2", "i1", false, ir.BumpPatch},
		{"body and interface", prev, "c2", "i2", false, ir.BumpMinor},
		{"dirty dependency", prev, "c1", "i1", true, ir.BumpPatch},
		{"dirty dependency changed interface", prev, "c1", "i2", true, ir.BumpPatch},
		{"body change with dirty dependency", prev, "c2", "i1", true, ir.BumpPatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideBump(tt.prev, tt.content, tt.iface, tt.dirtyDeps))
		})
	}
}

func TestBumpVersion(t *testing.T) {
	tests := []struct {
		version string
		bump    ir.Bump
		want    string
	}{
		{"1.0.0", ir.BumpPatch, "1.0.1"},
		{"1.0.0", ir.BumpMinor, "1.1.0"},
		{"1.2.7", ir.BumpMinor, "1.3.0"},
		{"0.1.9", ir.BumpPatch, "0.1.10"},
		{"2.0.0", ir.BumpNone, "2.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.version+"+"+string(tt.bump), func(t *testing.T) {
			got, err := BumpVersion(tt.version, tt.bump)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBumpVersion_Invalid(t *testing.T) {
	for _, v := range []string{"", "1.0", "v1.0.0", "1.0.0-rc.1", "1.0.0+build", "01.0.0", "a.b.c"} {
		t.Run(v, func(t *testing.T) {
			_, err := BumpVersion(v, ir.BumpPatch)
			assert.Error(t, err)
		})
	}

	_, err := BumpVersion("1.0.0", ir.Bump("major"))
	assert.Error(t, err)
}
