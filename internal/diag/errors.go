package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	// ErrStructural indicates unknown kinds, rejected parameters, missing
	// connections, dangling edges and duplicate ids.
	ErrStructural = errors.New("structural error")

	// ErrTypeMismatch indicates an edge whose endpoint types are incompatible.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrCycle indicates the graph is not a DAG.
	ErrCycle = errors.New("cycle error")

	// ErrLowering indicates a failure while lowering a single node.
	ErrLowering = errors.New("lowering error")

	// ErrNotFound indicates a failed lookup in a collaborator layer.
	ErrNotFound = errors.New("not found")

	// ErrCompilation indicates a graph that failed validation as a whole.
	ErrCompilation = errors.New("compilation error")
)

// Attributed is implemented by errors that belong to a specific node.
type Attributed interface {
	Node() string
}

// NodeOf returns the node id an error is attributed to, or "" for
// graph-level errors.
func NodeOf(err error) string {
	var a Attributed
	if errors.As(err, &a) {
		return a.Node()
	}
	return ""
}

// StructuralError represents a structural validation failure.
// The message is user-facing and printed verbatim.
type StructuralError struct {
	NodeID string // Empty for graph-level problems
	Msg    string
}

func (e *StructuralError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return ErrStructural.Error()
	}
	return e.Msg
}

func (e *StructuralError) Unwrap() error { return ErrStructural }
func (e *StructuralError) Node() string  { return e.NodeID }

// Structural is a convenience constructor with fmt-style formatting.
func Structural(nodeID, format string, args ...any) *StructuralError {
	return &StructuralError{NodeID: nodeID, Msg: fmt.Sprintf(format, args...)}
}

// TypeMismatchError is attributed to the edge's target node.
type TypeMismatchError struct {
	NodeID     string
	SourceKind string
	SourceType string
	TargetKind string
	Handle     string
	TargetType string
}

func (e *TypeMismatchError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("Type mismatch: %s outputs '%s' but %s.%s expects '%s'",
		e.SourceKind, e.SourceType, e.TargetKind, e.Handle, e.TargetType)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }
func (e *TypeMismatchError) Node() string  { return e.NodeID }

// CycleError is a graph-level error. Involved names one node on the cycle,
// for logging only.
type CycleError struct {
	Involved string
}

func (e *CycleError) Error() string {
	return "Graph contains circular dependencies"
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// LoweringError wraps a failure raised while lowering one node. The
// generator downgrades it to a comment in the emitted program.
type LoweringError struct {
	NodeID string
	Err    error
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("Error generating code for node %s: %v", e.NodeID, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *LoweringError) Unwrap() []error { return []error{ErrLowering, e.Err} }
func (e *LoweringError) Node() string    { return e.NodeID }

// NotFoundError reports a failed lookup, e.g. an unknown kind or a missing file.
type NotFoundError struct {
	What string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CompilationError is returned by the generator when validation fails. Each
// message line is already prefixed with its node id (or "Graph").
type CompilationError struct {
	Messages []string
	NodeID   string // first attributed node, for highlighting
}

func (e *CompilationError) Error() string {
	if len(e.Messages) == 0 {
		return "Graph validation failed"
	}
	return "Graph validation failed:\n  - " + strings.Join(e.Messages, "\n  - ")
}

func (e *CompilationError) Unwrap() error { return ErrCompilation }
func (e *CompilationError) Node() string  { return e.NodeID }

// NewCompilationError formats a list of attributed errors into one
// CompilationError. The first error with a node id picks NodeID.
func NewCompilationError(errs []error) *CompilationError {
	ce := &CompilationError{}
	for _, err := range errs {
		owner := NodeOf(err)
		label := owner
		if label == "" {
			label = "Graph"
		}
		ce.Messages = append(ce.Messages, fmt.Sprintf("%s: %s", label, err.Error()))
		if ce.NodeID == "" && owner != "" {
			ce.NodeID = owner
		}
	}
	return ce
}
