package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults with path", mutate: func(c *Config) {}},
		{name: "missing path", mutate: func(c *Config) { c.ActionPath = "" }, wantErr: "ActionPath is required"},
		{name: "bad format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: `LogFormat must be one of [text json auto], got "xml"`},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "LogLevel must be one of"},
		{name: "no workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: "Workers must be at least 1, got 0"},
		{name: "no steps", mutate: func(c *Config) { c.Steps = 0 }, wantErr: "Steps must be at least 1"},
		{name: "tiny mesh", mutate: func(c *Config) { c.MeshDims = 1 }, wantErr: "MeshDims must be at least 2"},
		{name: "port range", mutate: func(c *Config) { c.HealthcheckPort = 70000 }, wantErr: "HealthcheckPort must be at most 65535"},
		{
			name:    "several problems",
			mutate:  func(c *Config) { c.ActionPath = ""; c.Workers = 0 },
			wantErr: "invalid configuration: ActionPath is required; Workers must be at least 1, got 0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			cfg := DefaultConfig()
			cfg.ActionPath = "actions.yaml"
			tc.mutate(&cfg)

			// --- Act ---
			got, err := NewConfig(cfg)

			// --- Assert ---
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cfg, *got)
		})
	}
}

func TestNewLogger_Formats(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		format string
		want   string
	}{
		{format: "json", want: `"msg":"hello"`},
		{format: "text", want: "msg=hello"},
		// A buffer is not a terminal.
		{format: "auto", want: `"msg":"hello"`},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			logger := newLogger("debug", tc.format, &buf)

			logger.DebugContext(context.Background(), "hello")

			assert.Contains(t, buf.String(), tc.want)
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger("warn", "text", &buf)
	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
