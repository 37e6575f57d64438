package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func noop(context.Context, []any, Params) (any, error) { return nil, nil }

func contourDescriptor() *Descriptor {
	return &Descriptor{
		Type:       "contour",
		Role:       Transform,
		InputPorts: []string{"in"},
		OutputPort: true,
		Params: []ParamSpec{
			{Name: "field", Type: cty.String, Required: true},
			{Name: "iso_values", Type: cty.List(cty.Number), Required: true},
			{Name: "levels", Type: cty.Number, Default: cty.NumberIntVal(0)},
		},
		Invoke: noop,
	}
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Register(contourDescriptor()))
	require.NoError(t, r.Register(&Descriptor{Type: "relay", Role: Extract, InputPorts: []string{"in"}, Invoke: noop}))

	d, ok := r.Resolve("contour")
	require.True(t, ok)
	assert.Equal(t, Transform, d.Role)

	_, ok = r.Resolve("marching_cubes")
	assert.False(t, ok)

	assert.Equal(t, []string{"contour", "relay"}, r.Types())
}

func TestRegistry_DuplicateKeepsFirst(t *testing.T) {
	t.Parallel()

	r := New()
	first := contourDescriptor()
	require.NoError(t, r.Register(first))

	err := r.Register(contourDescriptor())
	require.ErrorIs(t, err, ErrDuplicateType)

	d, _ := r.Resolve("contour")
	assert.Same(t, first, d)
	assert.Panics(t, func() { r.MustRegister(contourDescriptor()) })
}

func TestRegistry_Sealed(t *testing.T) {
	t.Parallel()

	r := New()
	RegisterModules(r)
	assert.True(t, r.Sealed())
	assert.ErrorIs(t, r.Register(contourDescriptor()), ErrSealed)
}

func TestDescriptor_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		desc    *Descriptor
		wantErr []string
	}{
		{
			name:    "empty descriptor reports everything",
			desc:    &Descriptor{Role: Transform},
			wantErr: []string{"type name must not be empty", "Invoke must not be nil", "output port", "input port"},
		},
		{
			name: "sink with output port",
			desc: &Descriptor{Type: "relay", Role: Extract, OutputPort: true, InputPorts: []string{"in"}, Invoke: noop},
			wantErr: []string{"extract types must not declare an output port"},
		},
		{
			name: "bad default and duplicate param",
			desc: &Descriptor{
				Type: "threshold", Role: Transform, OutputPort: true, InputPorts: []string{"in"}, Invoke: noop,
				Params: []ParamSpec{
					{Name: "min_value", Type: cty.Number, Default: cty.StringVal("low")},
					{Name: "min_value", Type: cty.Number},
					{Name: "field", Type: cty.String, Required: true, Default: cty.StringVal("x")},
				},
			},
			wantErr: []string{"default does not conform", "declared twice", "required and also has a default"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := New().Register(tc.desc)
			require.Error(t, err)
			for _, want := range tc.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
