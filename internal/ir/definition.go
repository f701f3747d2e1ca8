package ir

// SourceFile is one scanned definition file with its raw content fingerprint.
type SourceFile struct {
	Path    string // absolute path
	RelPath string // slash-separated path relative to the source root
	Content string
	Hash    string
}

// Definition is a parsed prompt or snippet file.
type Definition struct {
	Path      string         `json:"path"`
	Model     string         `json:"model,omitempty"`
	Version   string         `json:"version,omitempty"`
	Snippet   bool           `json:"snippet,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
	Inputs    Schema         `json:"inputs,omitempty"`
	Outputs   Schema         `json:"outputs,omitempty"`
	Body      string         `json:"body"`
	Variables []string       `json:"variables,omitempty"` // free template variables, first occurrence order
	Snippets  []string       `json:"snippets,omitempty"`  // snippet references such as "@intro" or "@.local"
}

// ResolvedDefinition is a definition whose body no longer contains snippet references.
type ResolvedDefinition struct {
	Definition *Definition
	Body       string
	// Inputs is the union of the definition's own inputs and those of every
	// transitively included snippet.
	Inputs Schema
	// Dependencies holds absolute paths of every included snippet, direct and
	// transitive, in the order first encountered.
	Dependencies []string
	Warnings     []string
}
