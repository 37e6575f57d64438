package schema

import (
	"fmt"
	"sort"

	"github.com/vk/insituflow/internal/action"
	"github.com/vk/insituflow/internal/diag"
	"github.com/vk/insituflow/internal/nodeid"
	"github.com/vk/insituflow/internal/params"
)

// Result is the outcome of validating one action tree.
type Result struct {
	Errors    diag.List
	Pipelines []Pipeline
	Extracts  []Extract
	Scenes    []Scene
	Rejected  []Rejected
	// Reset is set when the tree contains a reset directive.
	Reset bool
}

// Pipeline returns the valid pipeline with the given name.
func (r *Result) Pipeline(name string) (*Pipeline, bool) {
	for i := range r.Pipelines {
		if r.Pipelines[i].Name == name {
			return &r.Pipelines[i], true
		}
	}
	return nil, false
}

type directive struct {
	loc     nodeid.Address
	entries []params.Entry
}

type validator struct {
	res *Result

	pipelineAt map[string]nodeid.Address
	extractAt  map[string]nodeid.Address
	sceneAt    map[string]nodeid.Address
}

// Validate checks every directive of the tree and returns the well-formed
// ones as typed values together with every structural error found.
// Directives are grouped by kind; diagnostics keep declaration order.
func Validate(tree *action.Tree) *Result {
	v := &validator{
		res:        &Result{},
		pipelineAt: make(map[string]nodeid.Address),
		extractAt:  make(map[string]nodeid.Address),
		sceneAt:    make(map[string]nodeid.Address),
	}

	groups := make(map[action.Kind][]directive)
	for _, a := range tree.Actions {
		if d, ok := v.envelope(a); ok {
			groups[a.Kind] = append(groups[a.Kind], d)
		}
	}

	for _, d := range groups[action.AddPipelines] {
		for _, e := range d.entries {
			v.pipeline(d.loc.Child(e.Key), e.Key, e.Value)
		}
	}
	for _, d := range groups[action.AddExtracts] {
		for _, e := range d.entries {
			v.extract(d.loc.Child(e.Key), e.Key, e.Value)
		}
	}
	for _, d := range groups[action.AddScenes] {
		for _, e := range d.entries {
			v.scene(d.loc.Child(e.Key), e.Key, e.Value)
		}
	}
	v.checkReferences()

	sort.SliceStable(v.res.Errors, func(i, j int) bool {
		return actionIndex(v.res.Errors[i]) < actionIndex(v.res.Errors[j])
	})
	return v.res
}

func actionIndex(d diag.Diagnostic) int {
	if len(d.Location.Path) == 0 {
		return -1
	}
	return d.Location.Path[0].Index
}

func (v *validator) errorf(loc nodeid.Address, format string, args ...any) {
	v.res.Errors.Add(diag.Validation, loc, format, args...)
}

func (v *validator) reject(kind, name string) {
	v.res.Rejected = append(v.res.Rejected, Rejected{Kind: kind, Name: name})
}

// envelope checks the directive wrapper and returns its named entries.
func (v *validator) envelope(a action.Action) (directive, bool) {
	loc := a.Location()
	entries, err := a.Body.Entries()
	if err != nil {
		v.errorf(loc, "directive must be a mapping: %v", err)
		return directive{}, false
	}

	kindVal, ok := a.Body.Lookup("action")
	if !ok {
		v.errorf(loc, "directive has no \"action\" key")
		return directive{}, false
	}
	name, err := kindVal.Str()
	if err != nil {
		v.errorf(loc.Child("action"), "action must be a string: %v", err)
		return directive{}, false
	}
	kind := action.Kind(name)
	if !kind.Known() {
		v.errorf(loc.Child("action"), "unknown directive kind %q", name)
		return directive{}, false
	}

	payloadKey := kind.PayloadKey()
	for _, e := range entries {
		if e.Key != "action" && e.Key != payloadKey {
			v.errorf(loc.Child(e.Key), "unexpected key %q in %s directive", e.Key, kind)
		}
	}

	if kind == action.Reset {
		v.res.Reset = true
	}
	if payloadKey == "" {
		return directive{}, false
	}

	loc = loc.Child(payloadKey)
	payload, ok := a.Body.Lookup(payloadKey)
	if !ok {
		v.errorf(loc, "%s directive has no %q key", kind, payloadKey)
		return directive{}, false
	}
	named, err := payload.Entries()
	if err != nil {
		v.errorf(loc, "%s must be a mapping of names: %v", payloadKey, err)
		return directive{}, false
	}
	return directive{loc: loc, entries: named}, true
}

// claim registers name in a namespace. The first declaration wins.
func (v *validator) claim(ns map[string]nodeid.Address, kind string, loc nodeid.Address, name string) bool {
	if name == "" {
		v.errorf(loc, "%s name must not be empty", kind)
		return false
	}
	if first, dup := ns[name]; dup {
		v.errorf(loc, "%s %q is already declared at %s", kind, name, first)
		return false
	}
	ns[name] = loc
	return true
}

func (v *validator) str(loc nodeid.Address, val params.Value) (string, bool) {
	s, err := val.Str()
	if err != nil {
		v.errorf(loc, "must be a string: %v", err)
		return "", false
	}
	if s == "" {
		v.errorf(loc, "must not be empty")
		return "", false
	}
	return s, true
}

// ref reads the optional pipeline/source keys shared by pipelines, extracts
// and plots.
func (v *validator) ref(loc nodeid.Address, key string, val params.Value, r *Ref) bool {
	s, ok := v.str(loc.Child(key), val)
	if !ok {
		return false
	}
	if key == "pipeline" {
		r.Pipeline = s
	} else {
		r.Dataset = s
	}
	if r.Pipeline != "" && r.Dataset != "" {
		v.errorf(loc, "\"pipeline\" and \"source\" are mutually exclusive")
		return false
	}
	return true
}

func (v *validator) pipeline(loc nodeid.Address, name string, body params.Value) {
	if !v.claim(v.pipelineAt, KindPipeline, loc, name) {
		return
	}
	p, ok := v.parsePipeline(loc, name, body)
	if !ok {
		v.reject(KindPipeline, name)
		return
	}
	v.res.Pipelines = append(v.res.Pipelines, p)
}

type stepDecl struct {
	name string
	body params.Value
	loc  nodeid.Address
}

func (v *validator) parsePipeline(loc nodeid.Address, name string, body params.Value) (Pipeline, bool) {
	entries, err := body.Entries()
	if err != nil {
		v.errorf(loc, "pipeline must be a mapping: %v", err)
		return Pipeline{}, false
	}

	p := Pipeline{Name: name, Location: loc}
	ok := true
	var inline []stepDecl
	var stepsVal params.Value
	hasSteps := false
	for _, e := range entries {
		switch e.Key {
		case "pipeline", "source":
			ok = v.ref(loc, e.Key, e.Value, &p.Input) && ok
		case "steps":
			hasSteps, stepsVal = true, e.Value
		default:
			inline = append(inline, stepDecl{name: e.Key, body: e.Value, loc: loc.Child(e.Key)})
		}
	}

	decls := inline
	if hasSteps {
		if len(inline) > 0 {
			v.errorf(inline[0].loc, "inline steps cannot be combined with a \"steps\" key")
			return Pipeline{}, false
		}
		var good bool
		decls, good = v.stepList(loc.Child("steps"), stepsVal)
		ok = good && ok
	}

	if len(decls) == 0 {
		if ok {
			v.errorf(loc, "pipeline must have at least one step")
		}
		return Pipeline{}, false
	}

	seen := make(map[string]nodeid.Address, len(decls))
	for _, d := range decls {
		if first, dup := seen[d.name]; dup {
			v.errorf(d.loc, "step %q is already declared at %s", d.name, first)
			ok = false
			continue
		}
		seen[d.name] = d.loc
		step, good := v.step(d)
		if !good {
			ok = false
			continue
		}
		p.Steps = append(p.Steps, step)
	}
	return p, ok
}

// stepList accepts either a sequence of step mappings, named by an optional
// "name" key or f_<index>, or an ordered mapping of named steps.
func (v *validator) stepList(loc nodeid.Address, val params.Value) ([]stepDecl, bool) {
	switch val.Kind() {
	case params.KindMap:
		entries, _ := val.Entries()
		decls := make([]stepDecl, 0, len(entries))
		for _, e := range entries {
			decls = append(decls, stepDecl{name: e.Key, body: e.Value, loc: loc.Child(e.Key)})
		}
		return decls, true
	case params.KindList:
		items, _ := val.Items()
		decls := make([]stepDecl, 0, len(items))
		ok := true
		for i, item := range items {
			d := stepDecl{name: fmt.Sprintf("f_%d", i), body: item, loc: loc.At(i)}
			if n, has := item.Lookup("name"); has {
				s, good := v.str(d.loc.Child("name"), n)
				if !good {
					ok = false
					continue
				}
				d.name = s
			}
			decls = append(decls, d)
		}
		return decls, ok
	default:
		v.errorf(loc, "steps must be a sequence or a mapping, got %s", val.Kind())
		return nil, false
	}
}

func (v *validator) step(d stepDecl) (Step, bool) {
	entries, err := d.body.Entries()
	if err != nil {
		v.errorf(d.loc, "step must be a mapping: %v", err)
		return Step{}, false
	}
	s := Step{Name: d.name, Location: d.loc}
	ok := true
	for _, e := range entries {
		switch e.Key {
		case "type":
			var good bool
			s.Type, good = v.str(d.loc.Child("type"), e.Value)
			ok = good && ok
		case "params":
			ok = v.paramsBlock(d.loc.Child("params"), e.Value) && ok
			s.Params = e.Value
		case "name":
		default:
			v.errorf(d.loc.Child(e.Key), "unexpected key %q in step", e.Key)
			ok = false
		}
	}
	if _, has := d.body.Lookup("type"); !has {
		v.errorf(d.loc, "step has no \"type\"")
		ok = false
	}
	return s, ok
}

func (v *validator) paramsBlock(loc nodeid.Address, val params.Value) bool {
	if val.Kind() != params.KindMap && !val.IsNull() {
		v.errorf(loc, "params must be a mapping, got %s", val.Kind())
		return false
	}
	return true
}

func (v *validator) extract(loc nodeid.Address, name string, body params.Value) {
	if !v.claim(v.extractAt, KindExtract, loc, name) {
		return
	}
	entries, err := body.Entries()
	if err != nil {
		v.errorf(loc, "extract must be a mapping: %v", err)
		v.reject(KindExtract, name)
		return
	}

	x := Extract{Name: name, Location: loc}
	ok := true
	for _, e := range entries {
		switch e.Key {
		case "type":
			var good bool
			x.Type, good = v.str(loc.Child("type"), e.Value)
			ok = good && ok
		case "pipeline", "source":
			ok = v.ref(loc, e.Key, e.Value, &x.Input) && ok
		case "params":
			ok = v.paramsBlock(loc.Child("params"), e.Value) && ok
			x.Params = e.Value
		default:
			v.errorf(loc.Child(e.Key), "unexpected key %q in extract", e.Key)
			ok = false
		}
	}
	if _, has := body.Lookup("type"); !has {
		v.errorf(loc, "extract has no \"type\"")
		ok = false
	}

	if !ok {
		v.reject(KindExtract, name)
		return
	}
	v.res.Extracts = append(v.res.Extracts, x)
}

func (v *validator) scene(loc nodeid.Address, name string, body params.Value) {
	if !v.claim(v.sceneAt, KindScene, loc, name) {
		return
	}
	entries, err := body.Entries()
	if err != nil {
		v.errorf(loc, "scene must be a mapping: %v", err)
		v.reject(KindScene, name)
		return
	}

	sc := Scene{Name: name, Location: loc}
	ok := true
	var plots params.Value
	hasPlots := false
	for _, e := range entries {
		switch e.Key {
		case "plots":
			hasPlots, plots = true, e.Value
		case "image_name", "image_prefix":
			var good bool
			sc.ImageName, good = v.str(loc.Child(e.Key), e.Value)
			ok = good && ok
		default:
			v.errorf(loc.Child(e.Key), "unexpected key %q in scene", e.Key)
			ok = false
		}
	}

	var plotEntries []params.Entry
	if !hasPlots {
		v.errorf(loc, "scene has no \"plots\"")
		ok = false
	} else if plotEntries, err = plots.Entries(); err != nil {
		v.errorf(loc.Child("plots"), "plots must be a mapping of names: %v", err)
		ok = false
	} else if len(plotEntries) == 0 {
		v.errorf(loc.Child("plots"), "scene must have at least one plot")
		ok = false
	}
	if !ok {
		v.reject(KindScene, name)
		return
	}

	seen := make(map[string]nodeid.Address, len(plotEntries))
	for _, e := range plotEntries {
		ploc := loc.Child("plots").Child(e.Key)
		if first, dup := seen[e.Key]; dup {
			v.errorf(ploc, "plot %q is already declared at %s", e.Key, first)
			continue
		}
		seen[e.Key] = ploc
		if p, good := v.plot(ploc, e.Key, e.Value); good {
			sc.Plots = append(sc.Plots, p)
		} else {
			v.reject(KindPlot, PlotKey(name, e.Key))
		}
	}
	v.res.Scenes = append(v.res.Scenes, sc)
}

// PlotKey is the report key of a plot.
func PlotKey(scene, plot string) string {
	return scene + "/" + plot
}

func (v *validator) plot(loc nodeid.Address, name string, body params.Value) (Plot, bool) {
	entries, err := body.Entries()
	if err != nil {
		v.errorf(loc, "plot must be a mapping: %v", err)
		return Plot{}, false
	}

	p := Plot{Name: name, Location: loc}
	ok := true
	var render []params.Entry
	for _, e := range entries {
		switch e.Key {
		case "type":
			var good bool
			p.Type, good = v.str(loc.Child("type"), e.Value)
			ok = good && ok
		case "pipeline", "source":
			ok = v.ref(loc, e.Key, e.Value, &p.Input) && ok
		case "field":
			var good bool
			p.Field, good = v.str(loc.Child("field"), e.Value)
			ok = good && ok
			render = append(render, e)
		default:
			render = append(render, e)
		}
	}
	if _, has := body.Lookup("type"); !has {
		v.errorf(loc, "plot has no \"type\"")
		ok = false
	}
	p.Params = params.Map(render...)
	return p, ok
}

// checkReferences rejects entries whose input names a pipeline that is not
// declared anywhere in the tree.
func (v *validator) checkReferences() {
	dangling := func(loc nodeid.Address, r Ref) bool {
		if !r.IsPipeline() {
			return false
		}
		if _, declared := v.pipelineAt[r.Pipeline]; declared {
			return false
		}
		v.errorf(loc.Child("pipeline"), "references undeclared pipeline %q", r.Pipeline)
		return true
	}

	pipelines := v.res.Pipelines[:0]
	for _, p := range v.res.Pipelines {
		if dangling(p.Location, p.Input) {
			v.reject(KindPipeline, p.Name)
			continue
		}
		pipelines = append(pipelines, p)
	}
	v.res.Pipelines = pipelines

	extracts := v.res.Extracts[:0]
	for _, x := range v.res.Extracts {
		if dangling(x.Location, x.Input) {
			v.reject(KindExtract, x.Name)
			continue
		}
		extracts = append(extracts, x)
	}
	v.res.Extracts = extracts

	for i := range v.res.Scenes {
		sc := &v.res.Scenes[i]
		plots := sc.Plots[:0]
		for _, p := range sc.Plots {
			if dangling(p.Location, p.Input) {
				v.reject(KindPlot, PlotKey(sc.Name, p.Name))
				continue
			}
			plots = append(plots, p)
		}
		sc.Plots = plots
	}
}
