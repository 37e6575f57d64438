// Package threshold provides the "threshold" transform: it keeps the points
// whose field value lies within [min_value, max_value].
package threshold

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/mesh"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Threshold is the invoke handler.
func Threshold(ctx context.Context, inputs []any, p registry.Params) (any, error) {
	in, err := mesh.Input(inputs)
	if err != nil {
		return nil, err
	}
	field := p.String("field")
	lo, hi := p.Float("min_value"), p.Float("max_value")
	if lo > hi {
		return nil, fmt.Errorf("min_value %g is greater than max_value %g", lo, hi)
	}

	values, err := in.Field(field)
	if err != nil {
		return nil, err
	}
	keep := make([]int, 0, len(values))
	for i, v := range values {
		if v >= lo && v <= hi {
			keep = append(keep, i)
		}
	}

	ctxlog.FromContext(ctx).Debug("Thresholded dataset.", "field", field, "kept", len(keep), "of", len(values))
	return in.Select("threshold", keep), nil
}

// Register registers the filter type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(&registry.Descriptor{
		Type:       "threshold",
		Role:       registry.Transform,
		InputPorts: []string{"in"},
		OutputPort: true,
		Params: []registry.ParamSpec{
			{Name: "field", Type: cty.String, Required: true},
			{Name: "min_value", Type: cty.Number, Default: cty.NumberIntVal(0)},
			{Name: "max_value", Type: cty.Number, Default: cty.NumberIntVal(1)},
		},
		Invoke: Threshold,
	})
}
