package schema

import (
	"github.com/vk/insituflow/internal/nodeid"
	"github.com/vk/insituflow/internal/params"
)

// Ref names the input of a pipeline, extract or plot. A zero Ref is the
// default published dataset.
type Ref struct {
	// Pipeline is the name of a pipeline whose last step is consumed.
	Pipeline string
	// Dataset is the name of a published dataset; empty means the default.
	Dataset string
}

// IsPipeline reports whether the reference names a pipeline.
func (r Ref) IsPipeline() bool { return r.Pipeline != "" }

func (r Ref) String() string {
	if r.Pipeline != "" {
		return "pipeline " + r.Pipeline
	}
	if r.Dataset != "" {
		return "source " + r.Dataset
	}
	return "default source"
}

// Step is one filter of a pipeline.
type Step struct {
	Name     string
	Type     string
	Params   params.Value
	Location nodeid.Address
}

// Pipeline is a named, ordered, non-empty chain of steps.
type Pipeline struct {
	Name     string
	Input    Ref
	Steps    []Step
	Location nodeid.Address
}

// Extract is a named sink exporting a pipeline's or a source's data.
type Extract struct {
	Name     string
	Type     string
	Input    Ref
	Params   params.Value
	Location nodeid.Address
}

// Plot is one render of a scene. Params holds every render parameter,
// including field.
type Plot struct {
	Name     string
	Type     string
	Input    Ref
	Field    string
	Params   params.Value
	Location nodeid.Address
}

// Scene is a named group of plots rendered into one image.
type Scene struct {
	Name      string
	ImageName string
	Plots     []Plot
	Location  nodeid.Address
}

// Rejected records a declared name that failed validation, so the report
// can show it with an invalid status.
type Rejected struct {
	Kind string
	Name string
}

const (
	KindPipeline = "pipeline"
	KindExtract  = "extract"
	KindScene    = "scene"
	KindPlot     = "plot"
)
