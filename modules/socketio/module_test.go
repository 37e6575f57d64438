package socketio

import (
	"context"
	"net"
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
		Cycle:  2,
		Points: []mesh.Point{{}, {X: 1}, {X: 2}},
		Fields: map[string][]float64{"braid": {-0.5, 0.1, 0.9}},
		Trail:  []string{"contour"},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(sample())

	assert.Equal(t, Summary{
		Name:    "mesh",
		Cycle:   2,
		Lineage: "mesh>contour",
		Points:  3,
		Fields:  map[string]FieldRange{"braid": {Min: -0.5, Max: 0.9}},
	}, s)
}

func TestRegister_Defaults(t *testing.T) {
	t.Parallel()

	r := registry.New()
	(&Module{}).Register(r)
	d, ok := r.Resolve("socketio")
	require.True(t, ok)

	p, issues := d.VerifyParams(params.Map(params.Entry{Key: "url", Value: params.String("http://localhost:3000")}))

	require.Empty(t, issues)
	assert.Equal(t, "/", p.String("namespace"))
	assert.Equal(t, "dataset", p.String("event"))
	assert.Equal(t, "10s", p.String("timeout"))
	assert.False(t, p.Has("ack_event"))
}

func TestEmit_ParamErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		url     string
		timeout string
		wantErr string
	}{
		{name: "bad timeout", url: "http://localhost:1", timeout: "soon", wantErr: "invalid timeout"},
		{name: "relative url", url: "/socket.io", timeout: "1s", wantErr: `url "/socket.io" must be absolute`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := registry.NewParams(map[string]cty.Value{
				"url":     cty.StringVal(tc.url),
				"timeout": cty.StringVal(tc.timeout),
			})
			_, err := Emit(context.Background(), []any{sample()}, p)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestEmit_UnreachableServer(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Reserve a port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	p := registry.NewParams(map[string]cty.Value{
		"url":       cty.StringVal("http://" + addr + "/socket.io/"),
		"namespace": cty.StringVal("/"),
		"event":     cty.StringVal("dataset"),
		"timeout":   cty.StringVal("300ms"),
	})

	// --- Act ---
	_, err = Emit(context.Background(), []any{sample()}, p)

	// --- Assert ---
	assert.Error(t, err)
}
