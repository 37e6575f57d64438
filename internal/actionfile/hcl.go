package actionfile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/action"
	"github.com/vk/insituflow/internal/params"
)

// hclFile is the block layout of an HCL action file:
//
//	reset = true
//
//	pipeline "pl1" {
//	  source = "mesh"
//	  step "f1" {
//	    type   = "contour"
//	    params = { field = "braid", iso_values = [0.2, 0.4] }
//	  }
//	}
//
//	extract "e1" {
//	  type     = "relay"
//	  pipeline = "pl1"
//	  params   = { path = "out" }
//	}
//
//	scene "s1" {
//	  image_name = "frame"
//	  plot "p1" {
//	    type     = "pseudocolor"
//	    pipeline = "pl1"
//	    field    = "braid"
//	  }
//	}
type hclFile struct {
	Reset     *bool         `hcl:"reset,optional"`
	Pipelines []hclPipeline `hcl:"pipeline,block"`
	Extracts  []hclExtract  `hcl:"extract,block"`
	Scenes    []hclScene    `hcl:"scene,block"`
}

type hclPipeline struct {
	Name     string    `hcl:"name,label"`
	Pipeline *string   `hcl:"pipeline,optional"`
	Source   *string   `hcl:"source,optional"`
	Steps    []hclStep `hcl:"step,block"`
}

type hclStep struct {
	Name   string    `hcl:"name,label"`
	Type   string    `hcl:"type"`
	Params cty.Value `hcl:"params,optional"`
}

type hclExtract struct {
	Name     string    `hcl:"name,label"`
	Type     string    `hcl:"type"`
	Pipeline *string   `hcl:"pipeline,optional"`
	Source   *string   `hcl:"source,optional"`
	Params   cty.Value `hcl:"params,optional"`
}

type hclScene struct {
	Name      string    `hcl:"name,label"`
	ImageName *string   `hcl:"image_name,optional"`
	Plots     []hclPlot `hcl:"plot,block"`
}

type hclPlot struct {
	Name     string    `hcl:"name,label"`
	Type     string    `hcl:"type"`
	Pipeline *string   `hcl:"pipeline,optional"`
	Source   *string   `hcl:"source,optional"`
	Field    *string   `hcl:"field,optional"`
	Params   cty.Value `hcl:"params,optional"`
}

// DecodeHCL parses an HCL action file into the equivalent directive
// sequence: a reset directive if requested, then one directive each for
// pipelines, extracts and scenes. Blocks keep their written order.
func DecodeHCL(filename string, data []byte) (params.Value, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return params.Value{}, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	var f hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &f); diags.HasErrors() {
		return params.Value{}, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}
	return f.directives()
}

func (f *hclFile) directives() (params.Value, error) {
	var out []params.Value
	if f.Reset != nil && *f.Reset {
		out = append(out, action.Directive(action.Reset))
	}

	if len(f.Pipelines) > 0 {
		named := make([]params.Entry, 0, len(f.Pipelines))
		for _, p := range f.Pipelines {
			body := refEntries(p.Pipeline, p.Source)
			steps := make([]params.Value, 0, len(p.Steps))
			for _, st := range p.Steps {
				entries := []params.Entry{
					{Key: "name", Value: params.String(st.Name)},
					{Key: "type", Value: params.String(st.Type)},
				}
				pv, err := paramsValue(st.Params)
				if err != nil {
					return params.Value{}, fmt.Errorf("pipeline %q step %q: %w", p.Name, st.Name, err)
				}
				if !pv.IsNull() {
					entries = append(entries, params.Entry{Key: "params", Value: pv})
				}
				steps = append(steps, params.Map(entries...))
			}
			body = append(body, params.Entry{Key: "steps", Value: params.List(steps...)})
			named = append(named, params.Entry{Key: p.Name, Value: params.Map(body...)})
		}
		out = append(out, action.Directive(action.AddPipelines, params.Entry{Key: "pipelines", Value: params.Map(named...)}))
	}

	if len(f.Extracts) > 0 {
		named := make([]params.Entry, 0, len(f.Extracts))
		for _, x := range f.Extracts {
			body := append([]params.Entry{{Key: "type", Value: params.String(x.Type)}}, refEntries(x.Pipeline, x.Source)...)
			pv, err := paramsValue(x.Params)
			if err != nil {
				return params.Value{}, fmt.Errorf("extract %q: %w", x.Name, err)
			}
			if !pv.IsNull() {
				body = append(body, params.Entry{Key: "params", Value: pv})
			}
			named = append(named, params.Entry{Key: x.Name, Value: params.Map(body...)})
		}
		out = append(out, action.Directive(action.AddExtracts, params.Entry{Key: "extracts", Value: params.Map(named...)}))
	}

	if len(f.Scenes) > 0 {
		named := make([]params.Entry, 0, len(f.Scenes))
		for _, sc := range f.Scenes {
			var body []params.Entry
			if sc.ImageName != nil {
				body = append(body, params.Entry{Key: "image_name", Value: params.String(*sc.ImageName)})
			}
			plots := make([]params.Entry, 0, len(sc.Plots))
			for _, p := range sc.Plots {
				plot, err := p.entries()
				if err != nil {
					return params.Value{}, fmt.Errorf("scene %q plot %q: %w", sc.Name, p.Name, err)
				}
				plots = append(plots, params.Entry{Key: p.Name, Value: params.Map(plot...)})
			}
			body = append(body, params.Entry{Key: "plots", Value: params.Map(plots...)})
			named = append(named, params.Entry{Key: sc.Name, Value: params.Map(body...)})
		}
		out = append(out, action.Directive(action.AddScenes, params.Entry{Key: "scenes", Value: params.Map(named...)}))
	}

	return params.List(out...), nil
}

// entries flattens a plot: render parameters sit beside type and input.
func (p hclPlot) entries() ([]params.Entry, error) {
	out := append([]params.Entry{{Key: "type", Value: params.String(p.Type)}}, refEntries(p.Pipeline, p.Source)...)
	if p.Field != nil {
		out = append(out, params.Entry{Key: "field", Value: params.String(*p.Field)})
	}
	pv, err := paramsValue(p.Params)
	if err != nil {
		return nil, err
	}
	if pv.IsNull() {
		return out, nil
	}
	extra, err := pv.Entries()
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	return append(out, extra...), nil
}

func refEntries(pipeline, source *string) []params.Entry {
	var out []params.Entry
	if pipeline != nil {
		out = append(out, params.Entry{Key: "pipeline", Value: params.String(*pipeline)})
	}
	if source != nil {
		out = append(out, params.Entry{Key: "source", Value: params.String(*source)})
	}
	return out
}

func paramsValue(v cty.Value) (params.Value, error) {
	if v == cty.NilVal || v.IsNull() {
		return params.Null(), nil
	}
	return params.FromCty(v)
}
