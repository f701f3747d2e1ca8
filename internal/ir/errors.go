package ir

import (
	"errors"
	"fmt"
	"strings"
)

// DiagnosticKind classifies a fatal per-definition failure.
type DiagnosticKind string

const (
	DiagParse           DiagnosticKind = "parse"
	DiagSnippetNotFound DiagnosticKind = "snippet-not-found"
	DiagSchemaConflict  DiagnosticKind = "schema-conflict"
	DiagCircular        DiagnosticKind = "circular"
	DiagSchema          DiagnosticKind = "schema"
)

// Diagnostic is a fatal problem recorded against one definition.
type Diagnostic struct {
	Path    string         `json:"path"`
	Message string         `json:"message"`
	Kind    DiagnosticKind `json:"kind"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s]: %s", d.Path, d.Kind, d.Message)
}

// Error is a classified resolution or parse failure.
type Error struct {
	Kind DiagnosticKind
	Path string
	// Cycle holds the reference chain of a circular error, from the first
	// occurrence of the repeated path to the repeated path.
	Cycle []string
	// Field, Sources describe a schema conflict.
	Field   string
	Sources [2]string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case DiagCircular:
		return "circular dependency detected: " + strings.Join(e.Cycle, " -> ")
	case DiagSchemaConflict:
		return fmt.Sprintf("conflict: input %q declared differently in %s and %s: %s", e.Field, e.Sources[0], e.Sources[1], e.Msg)
	}
	if e.Err != nil && e.Msg != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Msg, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Unclassified errors are parse failures; an
// unsupported type anywhere in the chain is a schema failure.
func KindOf(err error) DiagnosticKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrUnsupportedType) {
		return DiagSchema
	}
	return DiagParse
}

// NewDiagnostic converts err into a diagnostic for path.
func NewDiagnostic(path string, err error) Diagnostic {
	return Diagnostic{Path: path, Message: err.Error(), Kind: KindOf(err)}
}
