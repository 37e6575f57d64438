// Package clip provides the "clip" transform: it removes the points inside
// a sphere or an axis-aligned box, or keeps only those when invert is set.
package clip

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/mesh"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Sphere is the "sphere" parameter.
type Sphere struct {
	Center []float64 `cty:"center"`
	Radius float64   `cty:"radius"`
}

// Box is the "box" parameter.
type Box struct {
	Min []float64 `cty:"min"`
	Max []float64 `cty:"max"`
}

var (
	sphereType = cty.Object(map[string]cty.Type{"center": cty.List(cty.Number), "radius": cty.Number})
	boxType    = cty.Object(map[string]cty.Type{"min": cty.List(cty.Number), "max": cty.List(cty.Number)})
)

// region reports whether a point is inside the clip region.
type region func(mesh.Point) bool

func regionFrom(p registry.Params) (region, error) {
	switch {
	case p.Has("sphere") && p.Has("box"):
		return nil, errors.New("clip takes either sphere or box, not both")
	case p.Has("sphere"):
		var s Sphere
		if err := p.Decode("sphere", &s); err != nil {
			return nil, err
		}
		c, err := point("sphere center", s.Center)
		if err != nil {
			return nil, err
		}
		if s.Radius < 0 {
			return nil, fmt.Errorf("sphere radius must not be negative, got %g", s.Radius)
		}
		return func(q mesh.Point) bool {
			return math.Sqrt(sq(q.X-c.X)+sq(q.Y-c.Y)+sq(q.Z-c.Z)) <= s.Radius
		}, nil
	case p.Has("box"):
		var b Box
		if err := p.Decode("box", &b); err != nil {
			return nil, err
		}
		lo, err := point("box min", b.Min)
		if err != nil {
			return nil, err
		}
		hi, err := point("box max", b.Max)
		if err != nil {
			return nil, err
		}
		return func(q mesh.Point) bool {
			return q.X >= lo.X && q.X <= hi.X && q.Y >= lo.Y && q.Y <= hi.Y && q.Z >= lo.Z && q.Z <= hi.Z
		}, nil
	}
	return nil, errors.New("clip requires a sphere or a box")
}

func point(what string, xyz []float64) (mesh.Point, error) {
	if len(xyz) != 3 {
		return mesh.Point{}, fmt.Errorf("%s must have 3 coordinates, got %d", what, len(xyz))
	}
	return mesh.Point{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func sq(v float64) float64 { return v * v }

// Clip is the invoke handler.
func Clip(ctx context.Context, inputs []any, p registry.Params) (any, error) {
	in, err := mesh.Input(inputs)
	if err != nil {
		return nil, err
	}
	inside, err := regionFrom(p)
	if err != nil {
		return nil, err
	}
	invert := p.Bool("invert")

	keep := make([]int, 0, in.Len())
	for i, q := range in.Points {
		if inside(q) == invert {
			keep = append(keep, i)
		}
	}

	ctxlog.FromContext(ctx).Debug("Clipped dataset.", "invert", invert, "kept", len(keep), "of", in.Len())
	return in.Select("clip", keep), nil
}

// Register registers the filter type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(&registry.Descriptor{
		Type:       "clip",
		Role:       registry.Transform,
		InputPorts: []string{"in"},
		OutputPort: true,
		Params: []registry.ParamSpec{
			{Name: "sphere", Type: sphereType},
			{Name: "box", Type: boxType},
			{Name: "invert", Type: cty.Bool, Default: cty.False},
		},
		Invoke: Clip,
	})
}
