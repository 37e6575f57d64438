package testutil

import (
	"github.com/vk/insituflow/internal/action"
	"github.com/vk/insituflow/internal/params"
)

// M builds an ordered mapping from alternating keys and values. Values go
// through params.FromAny, so nested M results and plain Go values mix.
func M(kv ...any) params.Value {
	entries := make([]params.Entry, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		val, err := params.FromAny(kv[i+1])
		if err != nil {
			panic(err)
		}
		entries = append(entries, params.Entry{Key: kv[i].(string), Value: val})
	}
	return params.Map(entries...)
}

// Pipelines builds an add_pipelines directive.
func Pipelines(kv ...any) params.Value {
	return M("action", string(action.AddPipelines), "pipelines", M(kv...))
}

// Extracts builds an add_extracts directive.
func Extracts(kv ...any) params.Value {
	return M("action", string(action.AddExtracts), "extracts", M(kv...))
}

// Scenes builds an add_scenes directive.
func Scenes(kv ...any) params.Value {
	return M("action", string(action.AddScenes), "scenes", M(kv...))
}

// Contour is a contour step on field with two iso values.
func Contour(field string, iso ...float64) params.Value {
	if len(iso) == 0 {
		iso = []float64{0.2, 0.4}
	}
	values := make([]any, 0, len(iso))
	for _, v := range iso {
		values = append(values, v)
	}
	return M("type", "contour", "params", M("field", field, "iso_values", values))
}

// Step is a step of the given type with optional params.
func Step(typeName string, kv ...any) params.Value {
	if len(kv) == 0 {
		return M("type", typeName)
	}
	return M("type", typeName, "params", M(kv...))
}

// Tutorial is the canonical three-directive tree: one contour pipeline
// with an extract and a single-plot scene on it.
func Tutorial() *action.Tree {
	return action.NewTree(
		Pipelines("pl1", M("f1", Contour("braid"))),
		Extracts("e1", M("type", "relay", "pipeline", "pl1", "params", M("path", "out"))),
		Scenes("s1", M("plots", M("p1", M("type", "pseudocolor", "pipeline", "pl1", "field", "braid")), "image_name", "img")),
	)
}
