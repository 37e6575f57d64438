package graph

import (
	"fmt"
	"strings"

	"github.com/awalterschulze/gographviz"

	"github.com/vk/insituflow/internal/params"
)

// NodeInfo is the serialisable form of a plan node.
type NodeInfo struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Owner  string `json:"owner"`
	Type   string `json:"type,omitempty"`
	Params any    `json:"params,omitempty"`
}

// EdgeInfo is one "consumes" edge.
type EdgeInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Info is a dump of the plan, nodes in execution order.
type Info struct {
	Nodes []NodeInfo `json:"nodes"`
	Edges []EdgeInfo `json:"edges"`
}

// Info describes the plan for debugging and for the graph command.
func (p *Plan) Info() Info {
	info := Info{Nodes: []NodeInfo{}, Edges: []EdgeInfo{}}
	for _, id := range p.Order {
		n := p.Nodes[id]
		ni := NodeInfo{ID: id, Kind: n.Kind.String(), Owner: n.Owner, Type: n.Type}
		if n.Kind != SourceNode {
			if v, err := params.FromCty(n.Params.Value()); err == nil {
				ni.Params = v.Interface()
			}
		}
		info.Nodes = append(info.Nodes, ni)
		if n.Input != "" {
			info.Edges = append(info.Edges, EdgeInfo{From: n.Input, To: id})
		}
	}
	return info
}

var dotShapes = map[NodeKind]string{
	SourceNode:  "cylinder",
	StepNode:    "box",
	ExtractNode: "folder",
	PlotNode:    "note",
}

// dotQuote quotes a DOT identifier. Label line breaks are written as the
// two-character escape \n and pass through untouched.
func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// DOT renders the plan as a Graphviz digraph.
func (p *Plan) DOT() (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("plan"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	if err := g.AddAttr("plan", "rankdir", "LR"); err != nil {
		return "", err
	}

	for _, id := range p.Order {
		n := p.Nodes[id]
		label := n.Owner
		switch n.Kind {
		case StepNode:
			label = fmt.Sprintf("%s[%d] %s\\n%s", n.Owner, n.Step, n.StepName, n.Type)
		case ExtractNode, PlotNode:
			label = fmt.Sprintf("%s\\n%s", n.Owner, n.Type)
		}
		attrs := map[string]string{
			"label": dotQuote(label),
			"shape": dotShapes[n.Kind],
		}
		if err := g.AddNode("plan", dotQuote(id), attrs); err != nil {
			return "", fmt.Errorf("add node %s: %w", id, err)
		}
	}
	for _, id := range p.Order {
		n := p.Nodes[id]
		if n.Input == "" {
			continue
		}
		if err := g.AddEdge(dotQuote(n.Input), dotQuote(id), true, nil); err != nil {
			return "", fmt.Errorf("add edge %s -> %s: %w", n.Input, id, err)
		}
	}
	return g.String(), nil
}
