// Package diag defines the structured diagnostics collected during a pass.
//
// Directive-level problems never unwind the call stack. Every stage appends
// a Diagnostic to a List and carries on with the parts of the action tree it
// can still make progress on.
package diag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vk/insituflow/internal/nodeid"
)

// Class is the error taxonomy of a diagnostic.
type Class string

const (
	// Validation covers malformed directive shapes, dangling references,
	// name collisions and unresolved filter types.
	Validation Class = "validation"
	// Build covers cycles and dependencies left unresolved by pruning.
	Build Class = "build"
	// Execution covers filter invocations that reported a failure.
	Execution Class = "execution"
	// Fatal is reserved for an action tree whose top level cannot be parsed.
	Fatal Class = "fatal"
)

// Diagnostic is a single located problem.
type Diagnostic struct {
	Class    Class          `json:"class"`
	Location nodeid.Address `json:"-"`
	Message  string         `json:"message"`
}

// Path returns the canonical string form of the diagnostic's location.
func (d Diagnostic) Path() string {
	return d.Location.String()
}

// MarshalJSON renders the location in its canonical string form.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Class   Class  `json:"class"`
		Path    string `json:"path,omitempty"`
		Message string `json:"message"`
	}{d.Class, d.Path(), d.Message})
}

func (d Diagnostic) Error() string {
	if d.Location.IsZero() {
		return fmt.Sprintf("%s error: %s", d.Class, d.Message)
	}
	return fmt.Sprintf("%s error at %s: %s", d.Class, d.Location, d.Message)
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Add appends a formatted diagnostic.
func (l *List) Add(class Class, loc nodeid.Address, format string, args ...any) {
	*l = append(*l, Diagnostic{Class: class, Location: loc, Message: fmt.Sprintf(format, args...)})
}

// Extend appends every diagnostic of other.
func (l *List) Extend(other List) {
	*l = append(*l, other...)
}

// Of returns the diagnostics of the given class, preserving order.
func (l List) Of(class Class) List {
	var out List
	for _, d := range l {
		if d.Class == class {
			out = append(out, d)
		}
	}
	return out
}

// Err returns the list as an error, or nil when it is empty.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no diagnostics"
	case 1:
		return l[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(l[0].Error())
	fmt.Fprintf(&sb, " (and %d more)", len(l)-1)
	return sb.String()
}
