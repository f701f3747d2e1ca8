package ir

// Manifest is the persisted state of the last build: one entry per definition,
// keyed by path relative to the source root.
type Manifest struct {
	Lineage     string                   `json:"lineage,omitempty"`
	GeneratedAt string                   `json:"generatedAt"`
	Files       map[string]ManifestEntry `json:"files"`
}

// ManifestEntry records what was built for one definition.
type ManifestEntry struct {
	Version            string   `json:"version"`
	ContentHash        string   `json:"contentHash"`
	InputsHash         string   `json:"inputsHash"` // interface hash: merged inputs + outputs
	OutputsHash        string   `json:"outputsHash"`
	ArtifactHash       string   `json:"artifactHash,omitempty"`
	Dependencies       []string `json:"dependencies"`
	TokenEstimate      int      `json:"tokenEstimate"`
	InputTokenEstimate int      `json:"inputTokenEstimate"`
	Snippet            bool     `json:"snippet,omitempty"`
	Tainted            bool     `json:"tainted,omitempty"`
}

// Entry returns the entry recorded for relPath.
func (m *Manifest) Entry(relPath string) (*ManifestEntry, bool) {
	if m == nil || m.Files == nil {
		return nil, false
	}
	entry, ok := m.Files[relPath]
	if !ok {
		return nil, false
	}
	return &entry, true
}
