// Package action defines the Action Tree: the ordered sequence of directives
// submitted for one execution pass.
package action

import (
	"errors"
	"fmt"

	"github.com/vk/insituflow/internal/nodeid"
	"github.com/vk/insituflow/internal/params"
)

// Kind is the directive name carried under the "action" key.
type Kind string

const (
	AddPipelines Kind = "add_pipelines"
	AddExtracts  Kind = "add_extracts"
	AddScenes    Kind = "add_scenes"
	Execute      Kind = "execute"
	Reset        Kind = "reset"
)

// PayloadKey returns the key under which a directive of this kind carries
// its named entries, or "" for control directives.
func (k Kind) PayloadKey() string {
	switch k {
	case AddPipelines:
		return "pipelines"
	case AddExtracts:
		return "extracts"
	case AddScenes:
		return "scenes"
	}
	return ""
}

// Known reports whether k is a recognised directive kind.
func (k Kind) Known() bool {
	switch k {
	case AddPipelines, AddExtracts, AddScenes, Execute, Reset:
		return true
	}
	return false
}

// ErrTopLevel is returned when the root of the tree is not a sequence of
// directives. It is the only fatal parse condition.
var ErrTopLevel = errors.New("action tree must be a sequence of directives")

// Action is one directive in declaration order. Body is the raw directive
// mapping; its shape is checked by the schema validator, not here.
type Action struct {
	Index int
	Kind  Kind
	Body  params.Value
}

// Location is the address used for diagnostics about this directive.
func (a Action) Location() nodeid.Address {
	return nodeid.New("actions").At(a.Index)
}

// Tree is the parsed top level of an action tree.
type Tree struct {
	Actions []Action
}

// FromValue splits the root of a configuration tree into directives. A
// single mapping with an "action" key is accepted as a one-element tree.
func FromValue(root params.Value) (*Tree, error) {
	var items []params.Value
	switch root.Kind() {
	case params.KindList:
		items, _ = root.Items()
	case params.KindMap:
		if _, ok := root.Lookup("action"); !ok {
			return nil, fmt.Errorf("%w: got a mapping without an \"action\" key", ErrTopLevel)
		}
		items = []params.Value{root}
	case params.KindNull:
		return &Tree{}, nil
	default:
		return nil, fmt.Errorf("%w: got %s", ErrTopLevel, root.Kind())
	}

	tree := &Tree{Actions: make([]Action, 0, len(items))}
	for i, item := range items {
		a := Action{Index: i, Body: item}
		if kv, ok := item.Lookup("action"); ok {
			if s, err := kv.Str(); err == nil {
				a.Kind = Kind(s)
			}
		}
		tree.Actions = append(tree.Actions, a)
	}
	return tree, nil
}

// ByKind returns the directives of one kind, preserving declaration order.
func (t *Tree) ByKind(k Kind) []Action {
	var out []Action
	for _, a := range t.Actions {
		if a.Kind == k {
			out = append(out, a)
		}
	}
	return out
}

// Directive builds a directive mapping of the given kind whose payload key
// holds the given named entries. It is the in-memory equivalent of one
// element of an action file.
func Directive(k Kind, entries ...params.Entry) params.Value {
	body := []params.Entry{{Key: "action", Value: params.String(string(k))}}
	if key := k.PayloadKey(); key != "" {
		body = append(body, params.Entry{Key: key, Value: params.Map(entries...)})
	}
	return params.Map(body...)
}

// NewTree builds a tree from directive mappings.
func NewTree(directives ...params.Value) *Tree {
	tree, err := FromValue(params.List(directives...))
	if err != nil {
		// A list root never fails to split.
		panic(err)
	}
	return tree
}
