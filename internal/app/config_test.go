package app

import (
	"testing"

	"github.com/specialistvlad/manimgraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		GraphPath: "scene.json",
		LogFormat: "text",
		LogLevel:  "info",
		Quality:   "1080p",
		FPS:       30,
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(validConfig())

	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, cfg.Debounce)
}

func TestNewConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing graph",
			mutate:  func(c *Config) { c.GraphPath = "" },
			wantErr: "GraphPath is a required configuration field",
		},
		{
			name:    "log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: `LogFormat must be one of [text json], got "xml"`,
		},
		{
			name:    "quality",
			mutate:  func(c *Config) { c.Quality = "8k" },
			wantErr: `Quality must be one of [480p 720p 1080p 1440p 2160p], got "8k"`,
		},
		{
			name:    "fps",
			mutate:  func(c *Config) { c.FPS = 5 },
			wantErr: "FPS must be at least 15, got 5",
		},
		{
			name:    "progress url",
			mutate:  func(c *Config) { c.ProgressURL = "not a url" },
			wantErr: `ProgressURL must be a URL, got "not a url"`,
		},
		{
			name:    "render without work dir",
			mutate:  func(c *Config) { c.Render = true },
			wantErr: "WorkDir is required when rendering",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			cfg := validConfig()
			tc.mutate(&cfg)

			// --- Act ---
			_, err := NewConfig(cfg)

			// --- Assert ---
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var text, json testutil.SafeBuffer

	newLogger("warn", "text", &text).Info("hidden")
	newLogger("warn", "text", &text).Warn("shown")
	newLogger("debug", "json", &json).Debug("hello")

	assert.NotContains(t, text.String(), "hidden")
	assert.Contains(t, text.String(), "msg=shown")
	assert.Contains(t, json.String(), `"msg":"hello"`)
}
