// Package mesh is the demo dataset collaborator: a point mesh with named
// scalar fields, and a synthetic braid generator the host publishes as the
// default source at every cycle.
package mesh

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// Point is one mesh vertex.
type Point struct {
	X, Y, Z float64
}

// Dataset is an immutable point mesh. Filters never modify a dataset they
// were handed; they derive a new one.
type Dataset struct {
	Name   string
	Cycle  int
	Points []Point
	Fields map[string][]float64
	// Trail records the filters that produced this dataset.
	Trail []string
}

// Version implements fingerprint.Versioned: a published mesh is identified
// by its name and cycle.
func (d *Dataset) Version() string {
	return fmt.Sprintf("%s@%d", d.Name, d.Cycle)
}

// Len returns the number of points.
func (d *Dataset) Len() int { return len(d.Points) }

// FieldNames returns the field names in lexical order.
func (d *Dataset) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Field returns the values of the named field.
func (d *Dataset) Field(name string) ([]float64, error) {
	values, ok := d.Fields[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q has no field %q (have: %s)", d.Name, name, strings.Join(d.FieldNames(), ", "))
	}
	return values, nil
}

// Range returns the minimum and maximum of a field. An empty field yields
// (0, 0).
func (d *Dataset) Range(name string) (lo, hi float64, err error) {
	values, err := d.Field(name)
	if err != nil {
		return 0, 0, err
	}
	if len(values) == 0 {
		return 0, 0, nil
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, nil
}

// Select derives a dataset holding the points at the given indices, with
// every field carried along.
func (d *Dataset) Select(step string, keep []int) *Dataset {
	out := d.derive(step)
	out.Points = make([]Point, 0, len(keep))
	for _, i := range keep {
		out.Points = append(out.Points, d.Points[i])
	}
	for name, values := range d.Fields {
		picked := make([]float64, 0, len(keep))
		for _, i := range keep {
			picked = append(picked, values[i])
		}
		out.Fields[name] = picked
	}
	return out
}

// WithField derives a dataset that adds or replaces one field.
func (d *Dataset) WithField(step, name string, values []float64) (*Dataset, error) {
	if len(values) != len(d.Points) {
		return nil, fmt.Errorf("field %q has %d values for %d points", name, len(values), len(d.Points))
	}
	out := d.derive(step)
	out.Points = d.Points
	for k, v := range d.Fields {
		out.Fields[k] = v
	}
	out.Fields[name] = values
	return out, nil
}

func (d *Dataset) derive(step string) *Dataset {
	return &Dataset{
		Name:   d.Name,
		Cycle:  d.Cycle,
		Fields: make(map[string][]float64, len(d.Fields)+1),
		Trail:  append(slices.Clone(d.Trail), step),
	}
}

// Lineage renders the trail as "mesh>threshold>contour".
func (d *Dataset) Lineage() string {
	return strings.Join(append([]string{d.Name}, d.Trail...), ">")
}

// Input extracts the single dataset a filter was invoked with.
func Input(inputs []any) (*Dataset, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected one input dataset, got %d", len(inputs))
	}
	d, ok := inputs[0].(*Dataset)
	if !ok {
		return nil, fmt.Errorf("expected a mesh dataset, got %T", inputs[0])
	}
	return d, nil
}
