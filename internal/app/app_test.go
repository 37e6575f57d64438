package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const actionsYAML = `
- action: add_pipelines
  pipelines:
    pl1:
      - type: threshold
        params: {field: braid, min_value: -1, max_value: 1}
      - type: contour
        params: {field: braid, levels: 3, tolerance: 0.1}
- action: add_extracts
  extracts:
    e1:
      type: relay
      pipeline: pl1
      params: {path: e1.json}
    e2:
      type: print
      params: {label: raw, fields: [radial]}
- action: add_scenes
  scenes:
    s1:
      image_name: braid
      plots:
        p1:
          type: pseudocolor
          pipeline: pl1
          field: braid
`

type passReport struct {
	PassID    string `json:"pass_id"`
	Pipelines map[string]struct {
		Status string `json:"status"`
	} `json:"pipelines"`
	Extracts map[string]struct {
		Status string `json:"status"`
	} `json:"extracts"`
	Plots map[string]struct {
		Status string `json:"status"`
	} `json:"plots"`
	Errors []struct {
		Class   string `json:"class"`
		Message string `json:"message"`
	} `json:"errors"`
}

func writeActions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "actions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func reports(t *testing.T, out string) []passReport {
	t.Helper()
	var reps []passReport
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var rep passReport
		require.NoError(t, json.Unmarshal([]byte(line), &rep))
		reps = append(reps, rep)
	}
	return reps
}

func testConfig(actionPath, outDir string) *Config {
	cfg := DefaultConfig()
	cfg.ActionPath = actionPath
	cfg.OutputDir = outDir
	cfg.MeshDims = 6
	return &cfg
}

func TestRun_CoreModules(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	outDir := t.TempDir()
	cfg := testConfig(writeActions(t, actionsYAML), outDir)
	cfg.Steps = 2
	cfg.Workers = 2
	a, out, _ := SetupAppTest(t, cfg)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	reps := reports(t, out.String())
	require.Len(t, reps, 2)
	assert.NotEqual(t, reps[0].PassID, reps[1].PassID)
	for _, rep := range reps {
		assert.Empty(t, rep.Errors)
		assert.Equal(t, "success", rep.Pipelines["pl1"].Status)
		assert.Equal(t, "success", rep.Extracts["e1"].Status)
		assert.Equal(t, "success", rep.Extracts["e2"].Status)
		assert.Equal(t, "success", rep.Plots["s1/p1"].Status)
	}
	assert.FileExists(t, filepath.Join(outDir, "e1.json"))
	assert.FileExists(t, filepath.Join(outDir, "braid.png"))
	assert.Contains(t, out.String(), "raw (cycle 1, 216 points)")
}

func TestRun_Strict(t *testing.T) {
	t.Parallel()

	const broken = `
- action: add_pipelines
  pipelines:
    pl1:
      f1: {type: marching_cubes}
- action: add_extracts
  extracts:
    e1: {type: print}
`
	testCases := []struct {
		name    string
		strict  bool
		wantErr bool
	}{
		{name: "lenient", strict: false},
		{name: "strict", strict: true, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			cfg := testConfig(writeActions(t, broken), t.TempDir())
			cfg.Strict = tc.strict
			a, out, _ := SetupAppTest(t, cfg)

			// --- Act ---
			err := a.Run(context.Background())

			// --- Assert ---
			reps := reports(t, out.String())
			require.Len(t, reps, 1)
			assert.Equal(t, "pruned", reps[0].Pipelines["pl1"].Status)
			assert.Equal(t, "success", reps[0].Extracts["e1"].Status)
			require.NotEmpty(t, reps[0].Errors)
			assert.Equal(t, "validation", reps[0].Errors[0].Class)
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrPassFailed))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRun_LoadFailure(t *testing.T) {
	t.Parallel()

	cfg := testConfig(writeActions(t, "action: [unterminated"), t.TempDir())
	a, _, _ := SetupAppTest(t, cfg)

	err := a.Run(context.Background())

	assert.ErrorContains(t, err, "failed to load actions")
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	cfg := testConfig(writeActions(t, actionsYAML), t.TempDir())
	a, _, _ := SetupAppTest(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	const actions = `
- action: add_extracts
  extracts:
    e1: {type: relay, pipeline: missing}
`
	a, out, _ := SetupAppTest(t, testConfig(writeActions(t, actions), t.TempDir()))

	diags, err := a.Validate(context.Background())

	require.NoError(t, err)
	require.NotEmpty(t, diags)
	assert.Contains(t, out.String(), "missing")

	ok, okOut, _ := SetupAppTest(t, testConfig(writeActions(t, actionsYAML), t.TempDir()))
	diags, err = ok.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.True(t, strings.HasPrefix(okOut.String(), "OK: "))
}

func TestGraph(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		format  string
		want    string
		wantErr string
	}{
		{format: "dot", want: "digraph plan"},
		{format: "json", want: `"nodes"`},
		{format: "svg", wantErr: `unknown graph format "svg"`},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()
			a, out, _ := SetupAppTest(t, testConfig(writeActions(t, actionsYAML), t.TempDir()))

			err := a.Graph(context.Background(), tc.format)

			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tc.want)
			assert.Contains(t, out.String(), "pl1")
		})
	}
}

func TestHealthcheckHandler(t *testing.T) {
	t.Parallel()

	a, _, _ := SetupAppTest(t, testConfig("unused", t.TempDir()))
	server := httptest.NewServer(a.handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_DuplicateModulePanics(t *testing.T) {
	t.Parallel()

	cfg := testConfig("unused", t.TempDir())
	mods := coreModules(cfg.OutputDir, &SafeBuffer{})

	assert.Panics(t, func() {
		NewApp(&SafeBuffer{}, &SafeBuffer{}, cfg, append(mods, mods[0])...)
	})
}
