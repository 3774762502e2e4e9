// Package perr defines the typed error taxonomy used across the patchsplit
// pipeline, mirroring the error-kind classification in the design spec.
package perr

import "fmt"

// ErrorKind classifies a PipelineError so callers can branch with errors.Is
// without parsing message strings.
type ErrorKind int

const (
	// KindUnknown is for uncategorized errors.
	KindUnknown ErrorKind = iota
	// KindInput is for malformed diffs, missing files, unknown repos.
	KindInput
	// KindParse is for recoverable parse errors (AST failure, bad regex match).
	KindParse
	// KindGraph is for dependency-graph anomalies (unresolved cycles, unsortable
	// patch graphs).
	KindGraph
	// KindLLM is for enhancer network/parse/protocol errors.
	KindLLM
	// KindValidation is for post-split validation failures.
	KindValidation
	// KindIO is for fatal I/O failures (reading diffs, writing outputs).
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindParse:
		return "parse"
	case KindGraph:
		return "graph"
	case KindLLM:
		return "llm"
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// PipelineError is a classified error carrying an optional underlying cause.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is allows comparison by Kind, e.g. errors.Is(err, perr.New(perr.KindParse, "", nil)).
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a PipelineError of the given kind.
func New(kind ErrorKind, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Err: err}
}

// NewInputError wraps a malformed-input condition (bad diff, missing file, unknown repo).
func NewInputError(message string, err error) *PipelineError {
	return New(KindInput, message, err)
}

// NewParseError wraps a recoverable parse failure for a single hunk or file.
func NewParseError(what string, err error) *PipelineError {
	return New(KindParse, fmt.Sprintf("failed to parse %s", what), err)
}

// NewGraphError wraps a dependency-graph anomaly.
func NewGraphError(message string, err error) *PipelineError {
	return New(KindGraph, message, err)
}

// NewLLMError wraps an enhancer-boundary failure.
func NewLLMError(message string, err error) *PipelineError {
	return New(KindLLM, message, err)
}

// NewValidationError wraps a post-split validation failure.
func NewValidationError(message string, err error) *PipelineError {
	return New(KindValidation, message, err)
}

// NewIOError wraps a fatal I/O failure.
func NewIOError(operation string, err error) *PipelineError {
	return New(KindIO, fmt.Sprintf("I/O error during %s", operation), err)
}
