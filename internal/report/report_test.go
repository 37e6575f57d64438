package report

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/insituflow/internal/diag"
	"github.com/vk/insituflow/internal/nodeid"
)

func TestWorse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		a, b, want Status
	}{
		{StatusSuccess, StatusSuccess, StatusSuccess},
		{StatusSuccess, StatusFailed, StatusFailed},
		{StatusFailed, StatusSkipped, StatusFailed},
		{StatusCancelled, StatusSkipped, StatusSkipped},
		{StatusInvalid, StatusPruned, StatusInvalid},
	}

	for _, tc := range testCases {
		t.Run(string(tc.a)+"/"+string(tc.b), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Worse(tc.a, tc.b))
		})
	}
}

func TestReport_AddStepFoldsStatus(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New("pass-1")

	// --- Act ---
	r.AddStep("pl1", StepResult{Name: "f1", Type: "threshold", Status: StatusSuccess})
	r.AddStep("pl1", StepResult{Name: "f2", Type: "fail", Status: StatusFailed, Error: "boom"})
	r.AddStep("pl1", StepResult{Name: "f3", Type: "scale", Status: StatusSkipped})

	// --- Assert ---
	res, ok := r.Get(Pipeline, "pl1")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "boom", res.Error)
	assert.Len(t, res.Steps, 3)
}

func TestReport_OK(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	clean := New("a")
	clean.Set(Pipeline, "pl1", StatusSuccess, nil)
	clean.Set(Extract, "e1", StatusSuccess, nil)

	failing := New("b")
	failing.Set(Pipeline, "pl1", StatusSuccess, nil)
	failing.Set(Plot, "s1/p1", StatusFailed, errors.New("render failed"))

	withErrors := New("c")
	var l diag.List
	l.Add(diag.Validation, nodeid.New("actions").At(0), "bad")
	withErrors.AddErrors(l)

	// --- Act & Assert ---
	assert.True(t, New("empty").OK())
	assert.True(t, clean.OK())
	assert.False(t, failing.OK())
	assert.False(t, withErrors.OK())
	assert.Equal(t, map[Status]int{StatusSuccess: 1, StatusFailed: 1}, failing.Counts())
}

func TestReport_JSON(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New("pass-7")
	r.Set(Plot, "s1/p1", StatusFailed, errors.New("render failed"))
	r.Set(Extract, "e1", StatusSuccess, nil)
	r.AddStep("pl1", StepResult{Name: "f1", Type: "contour", Status: StatusSuccess, Cached: true})
	r.Finish()

	// --- Act ---
	raw, err := json.Marshal(r)

	// --- Assert ---
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "pass-7", decoded["pass_id"])
	assert.Equal(t, []any{}, decoded["errors"])
	assert.Contains(t, string(raw), `"plots":{"s1/p1":{"status":"failed","error":"render failed"}}`)
	assert.Contains(t, string(raw), `"steps":[{"name":"f1","type":"contour","status":"success","cached":true}]`)

	again, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestReport_Names(t *testing.T) {
	t.Parallel()

	r := New("x")
	r.Set(Extract, "b", StatusSuccess, nil)
	r.Set(Extract, "a", StatusPruned, nil)

	assert.Equal(t, []string{"a", "b"}, r.Names(Extract))
	assert.Equal(t, StatusPruned, r.Status(Extract, "a"))
	assert.Equal(t, Status(""), r.Status(Extract, "missing"))
}
