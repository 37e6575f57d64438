package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrDuplicateType is returned when a type name is registered twice.
	ErrDuplicateType = errors.New("filter type already registered")
	// ErrSealed is returned when registering into a sealed registry.
	ErrSealed = errors.New("registry is sealed")
)

// Module is the interface that every collaborator package implements to
// contribute filter types.
type Module interface {
	Register(r *Registry)
}

// Role says where in the graph a filter type may appear.
type Role int

const (
	// Transform types form pipeline steps and produce a dataset.
	Transform Role = iota
	// Extract types export a dataset outside the runtime.
	Extract
	// Render types draw a dataset as a plot of a scene.
	Render
)

func (r Role) String() string {
	switch r {
	case Transform:
		return "transform"
	case Extract:
		return "extract"
	case Render:
		return "render"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// InvokeFunc is the filter invocation interface. inputs holds one dataset
// handle per input port. The returned handle is stored in the output
// registry for transforms and recorded in the report for sinks.
type InvokeFunc func(ctx context.Context, inputs []any, p Params) (any, error)

// ParamSpec is the contract for one named parameter.
type ParamSpec struct {
	Name     string
	Type     cty.Type
	Required bool
	// Default is used when the parameter is absent. cty.NilVal means the
	// parameter resolves to a typed null.
	Default cty.Value
}

// Descriptor is the capability descriptor of one filter type.
type Descriptor struct {
	Type string
	Role Role
	// InputPorts names the inputs; pipeline steps, extracts and plots all
	// feed exactly one, so this is almost always a single port.
	InputPorts []string
	// OutputPort reports whether the type produces a dataset that can feed
	// further steps.
	OutputPort bool
	Params     []ParamSpec
	// AllowExtraParams accepts parameters outside Params, passing them
	// through with their implied types.
	AllowExtraParams bool
	Invoke           InvokeFunc
}

// Param returns the spec of the named parameter.
func (d *Descriptor) Param(name string) (ParamSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Registry holds the registered descriptors of a single application.
type Registry struct {
	mu      sync.RWMutex
	sealed  bool
	filters map[string]*Descriptor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{filters: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Duplicate names, malformed descriptors and
// registration after Seal are errors; the first registration of a name is
// kept.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil {
		return errors.New("descriptor must not be nil")
	}
	if err := d.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register %q: %w", d.Type, ErrSealed)
	}
	if _, exists := r.filters[d.Type]; exists {
		return fmt.Errorf("register %q: %w", d.Type, ErrDuplicateType)
	}
	slog.Debug("Registering filter type.", "type", d.Type, "role", d.Role.String())
	r.filters[d.Type] = d
	return nil
}

// MustRegister is Register for module init code, where a failure is a
// programming error.
func (r *Registry) MustRegister(d *Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Resolve looks up a filter type by name.
func (r *Registry) Resolve(typeName string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.filters[typeName]
	return d, ok
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Types returns the registered type names in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterModules registers every module and seals the registry.
func RegisterModules(r *Registry, modules ...Module) {
	for _, mod := range modules {
		mod.Register(r)
	}
	r.Seal()
}
