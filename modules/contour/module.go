// Package contour provides the "contour" transform. On a point mesh an
// isosurface is approximated by the points whose field value lies within a
// tolerance of one of the iso values; the matched iso value is recorded in
// a new "iso_value" field.
package contour

import (
	"context"
	"errors"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/mesh"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var errNoIsoValues = errors.New("contour requires iso_values or levels")

// Contour is the invoke handler.
func Contour(ctx context.Context, inputs []any, p registry.Params) (any, error) {
	in, err := mesh.Input(inputs)
	if err != nil {
		return nil, err
	}
	field := p.String("field")
	values, err := in.Field(field)
	if err != nil {
		return nil, err
	}

	isos := p.Floats("iso_values")
	if len(isos) == 0 && p.Has("levels") {
		lo, hi, _ := in.Range(field)
		isos = Levels(lo, hi, int(p.Float("levels")))
	}
	if len(isos) == 0 {
		return nil, errNoIsoValues
	}
	tol := p.Float("tolerance")

	var keep []int
	var matched []float64
	for i, v := range values {
		if iso, ok := nearest(v, isos, tol); ok {
			keep = append(keep, i)
			matched = append(matched, iso)
		}
	}

	ctxlog.FromContext(ctx).Debug("Contoured dataset.", "field", field, "iso_values", isos, "kept", len(keep))
	out := in.Select("contour", keep)
	if matched == nil {
		matched = []float64{}
	}
	out.Fields["iso_value"] = matched
	return out, nil
}

// Levels spreads n iso values evenly inside (lo, hi), excluding the ends.
func Levels(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i+1)/float64(n+1)
	}
	return out
}

func nearest(v float64, isos []float64, tol float64) (float64, bool) {
	best, dist := 0.0, math.Inf(1)
	for _, iso := range isos {
		if d := math.Abs(v - iso); d < dist {
			best, dist = iso, d
		}
	}
	return best, dist <= tol
}

// Register registers the filter type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(&registry.Descriptor{
		Type:       "contour",
		Role:       registry.Transform,
		InputPorts: []string{"in"},
		OutputPort: true,
		Params: []registry.ParamSpec{
			{Name: "field", Type: cty.String, Required: true},
			{Name: "iso_values", Type: cty.List(cty.Number)},
			{Name: "levels", Type: cty.Number},
			{Name: "tolerance", Type: cty.Number, Default: cty.NumberFloatVal(0.05)},
		},
		Invoke: Contour,
	})
}
