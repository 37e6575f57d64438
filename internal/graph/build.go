package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/dag"
	"github.com/vk/insituflow/internal/diag"
	"github.com/vk/insituflow/internal/nodeid"
	"github.com/vk/insituflow/internal/params"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/internal/schema"
)

// Plan is the compiled, acyclic form of one action tree.
type Plan struct {
	DAG   *dag.Graph
	Nodes map[string]*Node
	// Order is a dependency-first ordering of every node.
	Order  []string
	Errors diag.List

	// Pipelines, Extracts and Plots list what survived the build, in
	// declaration order.
	Pipelines []string
	Extracts  []string
	Plots     []string
	// Pruned lists what was dropped while building.
	Pruned []schema.Rejected

	tails map[string]string
	steps map[string][]string
}

// Node returns the node with the given id.
func (p *Plan) Node(id string) (*Node, bool) {
	n, ok := p.Nodes[id]
	return n, ok
}

// Tail returns the id of the last step of a built pipeline.
func (p *Plan) Tail(pipeline string) (string, bool) {
	id, ok := p.tails[pipeline]
	return id, ok
}

// Steps returns the node ids of a built pipeline in step order.
func (p *Plan) Steps(pipeline string) []string {
	return p.steps[pipeline]
}

type chain struct {
	pipeline *schema.Pipeline
	nodes    []*Node
}

type builder struct {
	plan   *Plan
	reg    *registry.Registry
	cat    Catalog
	chains map[string]*chain
	order  []string
}

// Build compiles validated directives against the filter registry. It
// always returns a plan; every problem is recorded in Plan.Errors and only
// the affected branch is dropped.
func Build(ctx context.Context, res *schema.Result, reg *registry.Registry, cat Catalog) *Plan {
	logger := ctxlog.FromContext(ctx)
	b := &builder{
		plan: &Plan{
			DAG:   dag.New(),
			Nodes: make(map[string]*Node),
			tails: make(map[string]string),
			steps: make(map[string][]string),
		},
		reg:    reg,
		cat:    cat,
		chains: make(map[string]*chain),
	}

	b.resolvePipelines(res.Pipelines)
	b.linkPipelines()
	b.addExtracts(res.Extracts)
	b.addScenes(res.Scenes)
	b.finish()

	logger.Debug("Plan built.",
		"nodes", len(b.plan.Nodes),
		"pipelines", len(b.plan.Pipelines),
		"extracts", len(b.plan.Extracts),
		"plots", len(b.plan.Plots),
		"pruned", len(b.plan.Pruned),
		"errors", len(b.plan.Errors),
	)
	return b.plan
}

func (b *builder) validationf(loc nodeid.Address, format string, args ...any) {
	b.plan.Errors.Add(diag.Validation, loc, format, args...)
}

func (b *builder) buildf(loc nodeid.Address, format string, args ...any) {
	b.plan.Errors.Add(diag.Build, loc, format, args...)
}

func (b *builder) prune(kind, name string) {
	b.plan.Pruned = append(b.plan.Pruned, schema.Rejected{Kind: kind, Name: name})
}

// resolve looks up a filter type, checks it can serve in the given role
// and resolves its parameters. paramLoc is where parameter problems are
// reported.
func (b *builder) resolve(loc, paramLoc nodeid.Address, typeName string, role registry.Role, given params.Value) (*Node, bool) {
	desc, ok := b.reg.Resolve(typeName)
	if !ok {
		b.validationf(loc.Child("type"), "unknown filter type %q", typeName)
		return nil, false
	}
	if desc.Role != role {
		b.validationf(loc.Child("type"), "filter type %q is a %s and cannot be used as a %s", typeName, desc.Role, role)
		return nil, false
	}
	if len(desc.InputPorts) != 1 {
		b.validationf(loc.Child("type"), "filter type %q takes %d inputs; only single-input filters can be connected here", typeName, len(desc.InputPorts))
		return nil, false
	}

	p, issues := desc.VerifyParams(given)
	for _, is := range issues {
		at := paramLoc
		if is.Param != "" {
			at = at.Child(is.Param)
		}
		b.validationf(at, "%s", is.Message)
	}
	return &Node{Type: typeName, Desc: desc, Params: p, Step: -1, Location: loc}, len(issues) == 0
}

// dataset resolves a non-pipeline reference against the catalog.
func (b *builder) dataset(loc nodeid.Address, r schema.Ref) (string, bool) {
	name := r.Dataset
	if name == "" {
		name = b.cat.Default
		if !b.cat.Has(name) {
			b.validationf(loc, "no default source is published")
			return "", false
		}
		return name, true
	}
	if !b.cat.Has(name) {
		b.validationf(loc.Child("source"), "references unpublished source %q", name)
		return "", false
	}
	return name, true
}

// source returns the node id of a published dataset, adding it on first use.
func (b *builder) source(name string) string {
	id := nodeid.Source(name).String()
	if _, ok := b.plan.Nodes[id]; !ok {
		b.plan.Nodes[id] = &Node{ID: id, Kind: SourceNode, Owner: name, Step: -1}
		b.plan.DAG.AddNode(id)
	}
	return id
}

func (b *builder) addNode(n *Node) {
	b.plan.Nodes[n.ID] = n
	b.plan.DAG.AddNode(n.ID)
}

func (b *builder) connect(n *Node, input string) {
	n.Input = input
	if err := b.plan.DAG.AddEdge(input, n.ID); err != nil {
		// Both ends were added by this builder.
		panic(fmt.Sprintf("graph: %v", err))
	}
}

func (b *builder) resolvePipelines(pipelines []schema.Pipeline) {
	for i := range pipelines {
		p := &pipelines[i]
		ok := true
		nodes := make([]*Node, 0, len(p.Steps))
		for idx, st := range p.Steps {
			n, good := b.resolve(st.Location, st.Location.Child("params"), st.Type, registry.Transform, st.Params)
			if !good {
				ok = false
				continue
			}
			n.ID = nodeid.Step(p.Name, idx).String()
			n.Kind = StepNode
			n.Owner = p.Name
			n.Step = idx
			n.StepName = st.Name
			nodes = append(nodes, n)
		}
		if ok && !p.Input.IsPipeline() {
			_, ok = b.dataset(p.Location, p.Input)
		}
		if !ok {
			b.prune(schema.KindPipeline, p.Name)
			continue
		}
		b.chains[p.Name] = &chain{pipeline: p, nodes: nodes}
		b.order = append(b.order, p.Name)
	}
}

// linkPipelines adds every resolved chain to the DAG, then removes the
// pipelines that sit on a cycle or consume a pipeline that was not built,
// together with everything downstream of them.
func (b *builder) linkPipelines() {
	for _, name := range b.order {
		c := b.chains[name]
		for i, n := range c.nodes {
			b.addNode(n)
			if i > 0 {
				b.connect(n, c.nodes[i-1].ID)
			}
		}
	}

	dead := make(map[string]pruneReason)
	for _, name := range b.order {
		c := b.chains[name]
		in := c.pipeline.Input
		switch {
		case !in.IsPipeline():
			dataset, _ := b.dataset(c.pipeline.Location, in)
			b.connect(c.nodes[0], b.source(dataset))
		case in.Pipeline == name:
			dead[name] = pruneReason{cycle: true, msg: cycleMessage(name + " -> " + name)}
		default:
			up, ok := b.chains[in.Pipeline]
			if !ok {
				dead[name] = pruneReason{msg: fmt.Sprintf("unresolved dependency: upstream pipeline %q was not built", in.Pipeline)}
				continue
			}
			b.connect(c.nodes[0], up.nodes[len(up.nodes)-1].ID)
		}
	}

	for _, id := range b.plan.DAG.CycleMembers() {
		owner := b.plan.Nodes[id].Owner
		if _, seen := dead[owner]; !seen {
			dead[owner] = pruneReason{cycle: true, msg: cycleMessage(b.cyclePath(owner))}
		}
	}

	victims := make(map[string]pruneReason)
	for name := range dead {
		c := b.chains[name]
		below, _ := b.plan.DAG.Descendants(c.nodes[len(c.nodes)-1].ID)
		for _, id := range below {
			owner := b.plan.Nodes[id].Owner
			if _, isDead := dead[owner]; isDead {
				continue
			}
			if _, seen := victims[owner]; !seen {
				up := b.chains[owner].pipeline.Input.Pipeline
				victims[owner] = pruneReason{msg: fmt.Sprintf("unresolved dependency: upstream pipeline %q was not built", up)}
			}
		}
	}

	kept := b.order[:0]
	for _, name := range b.order {
		c := b.chains[name]
		reason, isDead := dead[name]
		if !isDead {
			reason, isDead = victims[name]
		}
		if !isDead {
			kept = append(kept, name)
			continue
		}
		if reason.cycle {
			b.buildf(c.pipeline.Location, "%s", reason.msg)
		} else {
			b.buildf(c.pipeline.Location.Child("pipeline"), "%s", reason.msg)
		}
		for _, n := range c.nodes {
			b.plan.DAG.RemoveNode(n.ID)
			delete(b.plan.Nodes, n.ID)
		}
		delete(b.chains, name)
		b.prune(schema.KindPipeline, name)
	}
	b.order = kept

	for _, name := range b.order {
		c := b.chains[name]
		b.plan.tails[name] = c.nodes[len(c.nodes)-1].ID
		for _, n := range c.nodes {
			b.plan.steps[name] = append(b.plan.steps[name], n.ID)
		}
		b.plan.Pipelines = append(b.plan.Pipelines, name)
	}
}

type pruneReason struct {
	msg   string
	cycle bool
}

func cycleMessage(path string) string {
	return fmt.Sprintf("pipeline consumes its own output through a dependency cycle (%s)", path)
}

// cyclePath renders the upstream chain of a pipeline until it repeats.
// Every pipeline has a single input, so the walk ends on the cycle.
func (b *builder) cyclePath(start string) string {
	path := []string{start}
	seen := map[string]bool{start: true}
	cur := start
	for {
		c, ok := b.chains[cur]
		if !ok || !c.pipeline.Input.IsPipeline() {
			break
		}
		cur = c.pipeline.Input.Pipeline
		path = append(path, cur)
		if seen[cur] {
			break
		}
		seen[cur] = true
	}
	// Present it in consumption order: upstream first.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(path, " -> ")
}

// input resolves the node a sink consumes.
func (b *builder) input(loc nodeid.Address, r schema.Ref) (string, bool) {
	if r.IsPipeline() {
		tail, ok := b.plan.tails[r.Pipeline]
		if !ok {
			b.buildf(loc.Child("pipeline"), "unresolved dependency: pipeline %q was not built", r.Pipeline)
			return "", false
		}
		return tail, true
	}
	name, ok := b.dataset(loc, r)
	if !ok {
		return "", false
	}
	return b.source(name), true
}

func (b *builder) addExtracts(extracts []schema.Extract) {
	for _, x := range extracts {
		n, ok := b.resolve(x.Location, x.Location.Child("params"), x.Type, registry.Extract, x.Params)
		in, inOK := b.input(x.Location, x.Input)
		if !ok || !inOK {
			b.prune(schema.KindExtract, x.Name)
			continue
		}
		n.ID = nodeid.Extract(x.Name).String()
		n.Kind = ExtractNode
		n.Owner = x.Name
		b.addNode(n)
		b.connect(n, in)
		b.plan.Extracts = append(b.plan.Extracts, x.Name)
	}
}

func (b *builder) addScenes(scenes []schema.Scene) {
	for _, sc := range scenes {
		for _, p := range sc.Plots {
			key := schema.PlotKey(sc.Name, p.Name)
			given := b.withImageName(sc, p)
			n, ok := b.resolve(p.Location, p.Location, p.Type, registry.Render, given)
			in, inOK := b.input(p.Location, p.Input)
			if !ok || !inOK {
				b.prune(schema.KindPlot, key)
				continue
			}
			n.ID = nodeid.Plot(sc.Name, p.Name).String()
			n.Kind = PlotNode
			n.Owner = key
			b.addNode(n)
			b.connect(n, in)
			b.plan.Plots = append(b.plan.Plots, key)
		}
	}
}

// withImageName fills in image_name for render types that take one: the
// scene's image name for a single-plot scene, suffixed by the plot name
// otherwise, and <scene>_<plot> when the scene names no image.
func (b *builder) withImageName(sc schema.Scene, p schema.Plot) params.Value {
	desc, ok := b.reg.Resolve(p.Type)
	if !ok {
		return p.Params
	}
	if _, takes := desc.Param("image_name"); !takes {
		return p.Params
	}
	if _, set := p.Params.Lookup("image_name"); set {
		return p.Params
	}

	name := sc.Name + "_" + p.Name
	if sc.ImageName != "" {
		name = sc.ImageName
		if len(sc.Plots) > 1 {
			name += "_" + p.Name
		}
	}
	entries, _ := p.Params.Entries()
	out := make([]params.Entry, 0, len(entries)+1)
	out = append(out, entries...)
	out = append(out, params.Entry{Key: "image_name", Value: params.String(name)})
	return params.Map(out...)
}

func (b *builder) finish() {
	for _, id := range b.plan.DAG.Nodes() {
		n := b.plan.Nodes[id]
		if n.Kind != SourceNode {
			continue
		}
		if deps, _ := b.plan.DAG.Dependents(id); len(deps) == 0 {
			b.plan.DAG.RemoveNode(id)
			delete(b.plan.Nodes, id)
		}
	}

	order, err := b.plan.DAG.TopologicalSort()
	if err != nil {
		b.buildf(nodeid.Address{}, "%v", err)
		return
	}
	b.plan.Order = order
}
