package nodeid

import (
	"slices"
	"strconv"
	"strings"
)

// NoIndex marks a segment that carries no index.
const NoIndex = -1

// Segment is one element of an Address path.
type Segment struct {
	Name  string
	Index int
}

// Address is a path of segments such as `pipeline.pl1[0]`.
type Address struct {
	Path []Segment
}

// New builds an address from plain segment names.
func New(names ...string) Address {
	a := Address{Path: make([]Segment, 0, len(names))}
	for _, n := range names {
		a.Path = append(a.Path, Segment{Name: n, Index: NoIndex})
	}
	return a
}

// Child returns a copy of a extended with one more segment.
func (a Address) Child(name string) Address {
	path := make([]Segment, len(a.Path), len(a.Path)+1)
	copy(path, a.Path)
	return Address{Path: append(path, Segment{Name: name, Index: NoIndex})}
}

// At returns a copy of a whose last segment carries index i.
func (a Address) At(i int) Address {
	if len(a.Path) == 0 {
		return a
	}
	path := slices.Clone(a.Path)
	path[len(path)-1].Index = i
	return Address{Path: path}
}

// String serializes the Address into its canonical path string representation.
func (a Address) String() string {
	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(segment.Name)
		if segment.Index != NoIndex {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(segment.Index))
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// Equal reports whether both addresses have identical paths.
func (a Address) Equal(other Address) bool {
	return slices.Equal(a.Path, other.Path)
}

// IsZero reports whether the address has no segments.
func (a Address) IsZero() bool {
	return len(a.Path) == 0
}

// Source is the node id of a published dataset.
func Source(name string) Address {
	return New("source", name)
}

// Step is the node id of step i of a pipeline.
func Step(pipeline string, i int) Address {
	return New("pipeline", pipeline).At(i)
}

// Extract is the node id of an extract sink.
func Extract(name string) Address {
	return New("extract", name)
}

// Plot is the node id of a plot inside a scene.
func Plot(scene, plot string) Address {
	return New("scene", scene, plot)
}
