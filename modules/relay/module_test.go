package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
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
		Cycle:  3,
		Points: []mesh.Point{{X: 1, Y: 2, Z: 3}},
		Fields: map[string][]float64{"braid": {0.5}, "radial": {3.7}},
		Trail:  []string{"threshold"},
	}
}

func TestRelay_WritesFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	m := &Module{Dir: dir}
	p := registry.NewParams(map[string]cty.Value{
		"path":   cty.StringVal("out/e1.json"),
		"fields": cty.ListVal([]cty.Value{cty.StringVal("braid")}),
		"indent": cty.True,
	})

	// --- Act ---
	out, err := m.Invoke(context.Background(), []any{sample()}, p)

	// --- Assert ---
	require.NoError(t, err)
	receipt := out.(*Receipt)
	assert.Equal(t, filepath.Join(dir, "out", "e1.json"), receipt.Path)

	data, err := os.ReadFile(receipt.Path)
	require.NoError(t, err)
	assert.Equal(t, len(data), receipt.Bytes)

	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "mesh>threshold", doc.Lineage)
	assert.Equal(t, 3, doc.Cycle)
	assert.Equal(t, [][3]float64{{1, 2, 3}}, doc.Points)
	assert.Equal(t, map[string][]float64{"braid": {0.5}}, doc.Fields)
}

func TestRelay_Uploads(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	type captured struct {
		method, contentType string
		body                []byte
	}
	requests := make(chan captured, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- captured{method: r.Method, contentType: r.Header.Get("Content-Type"), body: body}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := &Module{Client: server.Client()}
	p := registry.NewParams(map[string]cty.Value{"upload_url": cty.StringVal(server.URL + "/bucket/e1.json")})

	// --- Act ---
	out, err := m.Invoke(context.Background(), []any{sample()}, p)

	// --- Assert ---
	require.NoError(t, err)
	got := <-requests
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, "200 OK", out.(*Receipt).Status)
	assert.Empty(t, out.(*Receipt).Path)

	var doc document
	require.NoError(t, json.Unmarshal(got.body, &doc))
	assert.Len(t, doc.Fields, 2)
}

func TestRelay_UploadRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	m := &Module{}
	p := registry.NewParams(map[string]cty.Value{"upload_url": cty.StringVal(server.URL)})

	_, err := m.Invoke(context.Background(), []any{sample()}, p)

	assert.EqualError(t, err, "upload failed with status: 403 Forbidden")
}

func TestRelay_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		params  map[string]cty.Value
		wantErr string
	}{
		{name: "no destination", params: map[string]cty.Value{}, wantErr: "relay requires path or upload_url"},
		{
			name: "unknown field",
			params: map[string]cty.Value{
				"path":   cty.StringVal("x.json"),
				"fields": cty.ListVal([]cty.Value{cty.StringVal("nope")}),
			},
			wantErr: `failed to encode dataset: dataset "mesh" has no field "nope" (have: braid, radial)`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := &Module{Dir: t.TempDir()}
			_, err := m.Invoke(context.Background(), []any{sample()}, registry.NewParams(tc.params))
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := registry.New()
	(&Module{}).Register(r)

	d, ok := r.Resolve("relay")
	require.True(t, ok)
	assert.Equal(t, registry.Extract, d.Role)
	assert.False(t, d.OutputPort)
}
