package threshold

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/params"
	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/mesh"
)

func sample() *mesh.Dataset {
	return &mesh.Dataset{
		Name:   "mesh",
		Points: []mesh.Point{{X: 0}, {X: 1}, {X: 2}, {X: 3}},
		Fields: map[string][]float64{"f": {-0.5, 0.25, 0.75, 1.5}},
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := registry.New()
	(&Module{}).Register(r)

	d, ok := r.Resolve("threshold")
	require.True(t, ok)
	assert.Equal(t, registry.Transform, d.Role)
	assert.True(t, d.OutputPort)

	p, issues := d.VerifyParams(params.Map(params.Entry{Key: "field", Value: params.String("f")}))
	require.Empty(t, issues)
	assert.Equal(t, 0.0, p.Float("min_value"))
	assert.Equal(t, 1.0, p.Float("max_value"))
}

func TestThreshold(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		lo, hi  int64
		want    []float64
		wantErr string
	}{
		{name: "default window", lo: 0, hi: 1, want: []float64{0.25, 0.75}},
		{name: "everything", lo: -1, hi: 2, want: []float64{-0.5, 0.25, 0.75, 1.5}},
		{name: "nothing", lo: 5, hi: 6, want: []float64{}},
		{name: "inverted", lo: 2, hi: 1, wantErr: "min_value 2 is greater than max_value 1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			in := sample()
			p := registry.NewParams(map[string]cty.Value{
				"field":     cty.StringVal("f"),
				"min_value": cty.NumberIntVal(tc.lo),
				"max_value": cty.NumberIntVal(tc.hi),
			})

			// --- Act ---
			out, err := Threshold(context.Background(), []any{in}, p)

			// --- Assert ---
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			got := out.(*mesh.Dataset)
			assert.Equal(t, tc.want, got.Fields["f"])
			assert.Len(t, got.Points, len(tc.want))
			assert.Equal(t, "mesh>threshold", got.Lineage())
		})
	}
}

func TestThreshold_UnknownField(t *testing.T) {
	t.Parallel()

	p := registry.NewParams(map[string]cty.Value{
		"field":     cty.StringVal("nope"),
		"min_value": cty.NumberIntVal(0),
		"max_value": cty.NumberIntVal(1),
	})
	_, err := Threshold(context.Background(), []any{sample()}, p)
	assert.ErrorContains(t, err, `has no field "nope"`)
}
