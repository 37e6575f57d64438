package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/params"
)

func TestVerifyParams_Resolves(t *testing.T) {
	t.Parallel()

	d := contourDescriptor()
	given := params.Map(
		params.Entry{Key: "field", Value: params.String("braid")},
		params.Entry{Key: "iso_values", Value: params.List(params.Number(0.2), params.Number(0.4))},
	)

	p, issues := d.VerifyParams(given)
	require.Empty(t, issues)
	assert.Equal(t, "braid", p.String("field"))
	assert.Equal(t, []float64{0.2, 0.4}, p.Floats("iso_values"))
	assert.Equal(t, 0.0, p.Float("levels"))
	assert.True(t, p.Has("levels"))
	assert.False(t, p.Has("nope"))
}

func TestVerifyParams_CollectsAllIssues(t *testing.T) {
	t.Parallel()

	d := contourDescriptor()
	given := params.Map(
		params.Entry{Key: "iso_values", Value: params.String("not a list")},
		params.Entry{Key: "colour", Value: params.String("red")},
		params.Entry{Key: "levels", Value: params.Number(1)},
		params.Entry{Key: "levels", Value: params.Number(2)},
	)

	_, issues := d.VerifyParams(given)

	byParam := map[string]string{}
	for _, is := range issues {
		byParam[is.Param] = is.Message
	}
	require.Len(t, issues, 4)
	assert.Equal(t, "missing required string parameter 'field'", byParam["field"])
	assert.Contains(t, byParam["iso_values"], "parameter 'iso_values' must be list of number")
	assert.Equal(t, "unknown parameter 'colour' for filter type 'contour'", byParam["colour"])
	assert.Equal(t, "duplicate parameter 'levels'", byParam["levels"])
}

func TestVerifyParams_NotAMapping(t *testing.T) {
	t.Parallel()

	_, issues := contourDescriptor().VerifyParams(params.List())
	require.NotEmpty(t, issues)
	assert.Equal(t, "parameters must be a mapping, got sequence", issues[0].Message)
}

func TestVerifyParams_ExtrasAndDynamic(t *testing.T) {
	t.Parallel()

	d := &Descriptor{
		Type: "pseudocolor", Role: Render, InputPorts: []string{"in"}, Invoke: noop,
		Params: []ParamSpec{
			{Name: "field", Type: cty.String, Required: true},
			{Name: "color_table", Type: cty.DynamicPseudoType},
		},
		AllowExtraParams: true,
	}
	given := params.Map(
		params.Entry{Key: "field", Value: params.Number(3)},
		params.Entry{Key: "color_table", Value: params.Map(params.Entry{Key: "name", Value: params.String("viridis")})},
		params.Entry{Key: "annotations", Value: params.Bool(false)},
	)

	p, issues := d.VerifyParams(given)
	require.Empty(t, issues)
	assert.Equal(t, "3", p.String("field"))
	assert.Equal(t, cty.StringVal("viridis"), p.Get("color_table").GetAttr("name"))
	assert.False(t, p.Bool("annotations"))
	assert.True(t, p.Has("annotations"))
}
