// Package print provides the "print" extract: it writes a short summary of
// a dataset to the host's output and the log.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/mesh"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the summary; os.Stdout when nil.
	Out io.Writer

	mu sync.Mutex
}

// Invoke is the invoke handler.
func (m *Module) Invoke(ctx context.Context, inputs []any, p registry.Params) (any, error) {
	in, err := mesh.Input(inputs)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("Printing dataset", "lineage", in.Lineage(), "points", in.Len())

	fields := in.FieldNames()
	if p.Has("fields") {
		fields = nil
		if err := p.Decode("fields", &fields); err != nil {
			return nil, err
		}
	}

	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	// Concurrent extracts share the writer.
	m.mu.Lock()
	defer m.mu.Unlock()

	label := p.String("label")
	if label == "" {
		label = in.Lineage()
	}
	fmt.Fprintf(out, "%s (cycle %d, %d points)\n", label, in.Cycle, in.Len())
	for _, name := range fields {
		lo, hi, err := in.Range(name)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "      %s = [%g, %g]\n", name, lo, hi)
	}
	return nil, nil
}

// Register registers the filter type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(&registry.Descriptor{
		Type:       "print",
		Role:       registry.Extract,
		InputPorts: []string{"in"},
		Params: []registry.ParamSpec{
			{Name: "label", Type: cty.String},
			{Name: "fields", Type: cty.List(cty.String)},
		},
		Invoke: m.Invoke,
	})
}
