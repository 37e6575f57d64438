package graph

import (
	"github.com/vk/insituflow/internal/nodeid"
	"github.com/vk/insituflow/internal/outreg"
	"github.com/vk/insituflow/internal/registry"
)

// NodeKind distinguishes the four kinds of plan nodes.
type NodeKind int

const (
	SourceNode NodeKind = iota
	StepNode
	ExtractNode
	PlotNode
)

func (k NodeKind) String() string {
	switch k {
	case SourceNode:
		return "source"
	case StepNode:
		return "step"
	case ExtractNode:
		return "extract"
	case PlotNode:
		return "plot"
	}
	return "unknown"
}

// Node is one vertex of a Plan.
type Node struct {
	ID   string
	Kind NodeKind
	// Owner is the dataset name, pipeline name, extract name or plot key
	// (scene/plot) the node reports under.
	Owner string
	// Step is the index of a step within its pipeline, -1 otherwise.
	Step     int
	StepName string
	Type     string
	Desc     *registry.Descriptor
	Params   registry.Params
	// Input is the id of the node this one consumes; empty for sources.
	Input    string
	Location nodeid.Address
}

// Key is the output registry key of a node that produces a dataset.
func (n *Node) Key() (outreg.Key, bool) {
	switch n.Kind {
	case SourceNode:
		return outreg.SourceKey(n.Owner), true
	case StepNode:
		return outreg.StepKey(n.Owner, n.Step), true
	}
	return outreg.Key{}, false
}

// Catalog describes the datasets published for a pass.
type Catalog struct {
	// Default is the dataset used when a directive names no input.
	Default string
	Names   []string
}

// Has reports whether name is published.
func (c Catalog) Has(name string) bool {
	for _, n := range c.Names {
		if n == name {
			return true
		}
	}
	return false
}
