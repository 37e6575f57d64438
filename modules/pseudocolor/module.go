// Package pseudocolor provides the "pseudocolor" render type: it maps one
// field through a colour table and writes the result as a PNG strip named
// after the plot's image_name.
package pseudocolor

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/mesh"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Dir is where images are written.
	Dir string
}

// Image describes a rendered file.
type Image struct {
	Path          string
	Width, Height int
}

// Draw renders values as a width x height strip. Each column shows the mean
// of the values that fall into it, normalized over [lo, hi].
func Draw(values []float64, lo, hi float64, width, height int, table ColorTable) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := len(values)
	if n == 0 {
		return img
	}
	span := hi - lo
	for x := 0; x < width; x++ {
		from := x * n / width
		to := (x + 1) * n / width
		if to <= from {
			to = from + 1
		}
		sum := 0.0
		for _, v := range values[from:to] {
			sum += v
		}
		norm := 0.5
		if span > 0 {
			norm = (sum/float64(to-from) - lo) / span
		}
		c := table.At(norm)
		for y := 0; y < height; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Invoke is the invoke handler.
func (m *Module) Invoke(ctx context.Context, inputs []any, p registry.Params) (any, error) {
	in, err := mesh.Input(inputs)
	if err != nil {
		return nil, err
	}
	field := p.String("field")
	values, err := in.Field(field)
	if err != nil {
		return nil, err
	}
	table, err := lookupTable(p.String("color_table"))
	if err != nil {
		return nil, err
	}
	width, height := int(p.Float("width")), int(p.Float("height"))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %dx%d", width, height)
	}

	lo, hi, _ := in.Range(field)
	if p.Has("min_value") {
		lo = p.Float("min_value")
	}
	if p.Has("max_value") {
		hi = p.Float("max_value")
	}

	name := p.String("image_name")
	if name == "" {
		name = "pseudocolor"
	}
	path := filepath.Join(m.Dir, name+".png")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for '%s': %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create image '%s': %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, Draw(values, lo, hi, width, height, table)); err != nil {
		return nil, fmt.Errorf("failed to encode image '%s': %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write image '%s': %w", path, err)
	}

	ctxlog.FromContext(ctx).Info("Rendered plot.", "image", path, "field", field, "points", len(values))
	return &Image{Path: path, Width: width, Height: height}, nil
}

// Register registers the filter type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.MustRegister(&registry.Descriptor{
		Type:       "pseudocolor",
		Role:       registry.Render,
		InputPorts: []string{"in"},
		Params: []registry.ParamSpec{
			{Name: "field", Type: cty.String, Required: true},
			{Name: "image_name", Type: cty.String},
			{Name: "color_table", Type: cty.String, Default: cty.StringVal("cool2warm")},
			{Name: "width", Type: cty.Number, Default: cty.NumberIntVal(256)},
			{Name: "height", Type: cty.Number, Default: cty.NumberIntVal(32)},
			{Name: "min_value", Type: cty.Number},
			{Name: "max_value", Type: cty.Number},
		},
		Invoke: m.Invoke,
	})
}
