package testutil

import (
	"slices"
	"strings"
)

// Dataset is an immutable stand-in for a mesh: a few values plus the
// lineage of filters that produced it.
type Dataset struct {
	Name   string
	Values []float64
	Trail  []string
	// Rev is reported as the dataset version when set.
	Rev string
}

// Version implements fingerprint.Versioned.
func (d *Dataset) Version() string { return d.Rev }

// NewDataset builds a source dataset.
func NewDataset(name string, values ...float64) *Dataset {
	return &Dataset{Name: name, Values: values}
}

// derive returns a copy with new values and one more lineage entry.
func (d *Dataset) derive(step string, values []float64) *Dataset {
	return &Dataset{
		Name:   d.Name,
		Values: values,
		Trail:  append(slices.Clone(d.Trail), step),
	}
}

// Lineage renders the trail as "source>step>step".
func (d *Dataset) Lineage() string {
	return strings.Join(append([]string{d.Name}, d.Trail...), ">")
}
