package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/insituflow/internal/registry"
	"github.com/vk/insituflow/modules/mesh"
)

func sample() *mesh.Dataset {
	return &mesh.Dataset{
		Name:   "mesh",
		Cycle:  4,
		Points: []mesh.Point{{}, {X: 1}},
		Fields: map[string][]float64{"braid": {-0.25, 0.5}, "radial": {0, 1}},
		Trail:  []string{"clip"},
	}
}

func TestPrint(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		params  map[string]cty.Value
		want    string
		wantErr string
	}{
		{
			name:   "all fields",
			params: map[string]cty.Value{},
			want:   "mesh>clip (cycle 4, 2 points)\n      braid = [-0.25, 0.5]\n      radial = [0, 1]\n",
		},
		{
			name: "label and subset",
			params: map[string]cty.Value{
				"label":  cty.StringVal("e1"),
				"fields": cty.ListVal([]cty.Value{cty.StringVal("radial")}),
			},
			want: "e1 (cycle 4, 2 points)\n      radial = [0, 1]\n",
		},
		{
			name:    "unknown field",
			params:  map[string]cty.Value{"fields": cty.ListVal([]cty.Value{cty.StringVal("x")})},
			wantErr: `dataset "mesh" has no field "x" (have: braid, radial)`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			var buf bytes.Buffer
			m := &Module{Out: &buf}

			// --- Act ---
			_, err := m.Invoke(context.Background(), []any{sample()}, registry.NewParams(tc.params))

			// --- Assert ---
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, buf.String())
		})
	}
}
