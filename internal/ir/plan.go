package ir

// Action is what a build does with one definition.
type Action string

const (
	ActionCreate Action = "create" // no previous manifest entry
	ActionUpdate Action = "update" // dirty, regenerated
	ActionNoop   Action = "noop"   // clean, carried forward
)

// Reason explains why a definition is dirty.
type Reason string

const (
	ReasonNew        Reason = "new"
	ReasonContent    Reason = "content"
	ReasonDependency Reason = "dependency"
	ReasonTainted    Reason = "tainted"
)

// Bump is a semantic-version increment decision.
type Bump string

const (
	BumpNone  Bump = ""
	BumpPatch Bump = "patch"
	BumpMinor Bump = "minor"
)

// Plan is the outcome of dirtiness analysis over one scan.
type Plan struct {
	Metadata *PlanMetadata   `json:"metadata"`
	Dirty    map[string]bool `json:"-"`
	Changes  []*Change       `json:"changes"`
	Summary  *PlanSummary    `json:"summary"`

	// Removed lists manifest entries whose source file was not found in the scan.
	Removed []string `json:"removed,omitempty"`
}

type PlanMetadata struct {
	Timestamp string `json:"timestamp"`
	Lineage   string `json:"lineage,omitempty"`
}

// Change is the plan for one definition. Bump and the versions are filled in
// by the build once the definition has been resolved.
type Change struct {
	Path        string `json:"path"`
	Action      Action `json:"action"`
	Reason      Reason `json:"reason,omitempty"`
	Cause       string `json:"cause,omitempty"` // dirty dependency that triggered a ReasonDependency change
	Bump        Bump   `json:"bump,omitempty"`
	FromVersion string `json:"fromVersion,omitempty"`
	ToVersion   string `json:"toVersion,omitempty"`
}

type PlanSummary struct {
	Create  int `json:"create"`
	Update  int `json:"update"`
	NoOp    int `json:"noop"`
	Removed int `json:"removed"`
}

// IsDirty reports whether relPath is in the dirty set.
func (p *Plan) IsDirty(relPath string) bool {
	return p != nil && p.Dirty[relPath]
}

// Change returns the planned change for relPath.
func (p *Plan) Change(relPath string) *Change {
	for _, c := range p.Changes {
		if c.Path == relPath {
			return c
		}
	}
	return nil
}
