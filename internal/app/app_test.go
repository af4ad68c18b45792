package app_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/manimgraph/internal/app"
	"github.com/specialistvlad/manimgraph/internal/diag"
	"github.com/specialistvlad/manimgraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneJSON = `{
  "id": "g1",
  "nodes": [
    {"id": "c1", "type": "Circle", "data": {"radius": 2}},
    {"id": "f1", "type": "FadeIn", "data": {}}
  ],
  "edges": [
    {"source": "c1", "sourceHandle": "shape", "target": "f1", "targetHandle": "mobject"}
  ]
}`

func config(t *testing.T, graphPath string, mutate func(*app.Config)) *app.Config {
	t.Helper()
	cfg := app.Config{
		GraphPath: graphPath,
		LogFormat: "text",
		LogLevel:  "debug",
		Quality:   "480p",
		FPS:       15,
		WorkDir:   t.TempDir(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	out, err := app.NewConfig(cfg)
	require.NoError(t, err)
	return out
}

func newApp(t *testing.T, cfg *app.Config) (*app.App, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()
	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	a, err := app.NewApp(out, logs, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if os.Getenv("MANIMGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, out, logs
}

func TestApp_Run_WritesProgramToOutput(t *testing.T) {
	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{"scene.json": sceneJSON})
	a, out, _ := newApp(t, config(t, filepath.Join(root, "scene.json"), nil))

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), "class GeneratedScene(ThreeDScene):")
	assert.Contains(t, out.String(), "circle_1 = Circle(radius=2,")
	assert.Contains(t, out.String(), "self.play(fadein_1)")
}

func TestApp_Run_WritesOutFile(t *testing.T) {
	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{"scene.json": sceneJSON})
	outPath := filepath.Join(root, "build", "scene.py")
	a, out, logs := newApp(t, config(t, filepath.Join(root, "scene.json"), func(c *app.Config) {
		c.OutPath = outPath
	}))

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, out.String())
	text, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(text), "self.play(fadein_1)")
	assert.Contains(t, logs.String(), "Program written.")
}

func TestApp_Run_Errors(t *testing.T) {
	t.Run("missing graph file", func(t *testing.T) {
		a, _, _ := newApp(t, config(t, filepath.Join(t.TempDir(), "nope.json"), nil))

		err := a.Run(context.Background())

		assert.True(t, errors.Is(err, diag.ErrNotFound))
	})

	t.Run("invalid graph", func(t *testing.T) {
		root := testutil.WriteFiles(t, map[string]string{
			"scene.yaml": "nodes:\n  - id: f1\n    type: FadeIn\n",
		})
		a, out, logs := newApp(t, config(t, filepath.Join(root, "scene.yaml"), nil))

		err := a.Run(context.Background())

		require.Error(t, err)
		assert.True(t, errors.Is(err, diag.ErrCompilation))
		assert.Contains(t, err.Error(), "f1: Missing required input: mobject")
		assert.Empty(t, out.String())
		assert.Contains(t, logs.String(), "Graph validation failed.")
	})
}

func TestNewApp_CatalogDir(t *testing.T) {
	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{
		"kinds/star.hcl": `
kind "Star" {
  role     = "shape"
  template = "{{var}} = Star(n={{field.points}})"
  output "shape" { type = shape }
  param "points" {
    type    = number
    default = 5
  }
}
`,
		"scene.hcl": `
graph "demo" {
  node "s1" {
    kind = "Star"
    data = { points = 7 }
  }
}
`,
	})
	cfg := config(t, filepath.Join(root, "scene.hcl"), func(c *app.Config) {
		c.CatalogPath = filepath.Join(root, "kinds")
	})

	// --- Act ---
	a, out, _ := newApp(t, cfg)
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	_, ok := a.Catalog().Kind("Star")
	assert.True(t, ok)
	assert.Contains(t, out.String(), "star_1 = Star(n=7)")
}

func TestNewApp_BrokenCatalog(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{
		"kinds/broken.hcl": `kind "Broken" {`,
	})
	cfg := config(t, "scene.json", func(c *app.Config) {
		c.CatalogPath = filepath.Join(root, "kinds")
	})

	_, err := app.NewApp(&bytes.Buffer{}, &testutil.SafeBuffer{}, cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog manifests")
}

func TestApp_Run_Render(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake renderer is a shell script")
	}

	// --- Arrange ---
	bin := filepath.Join(t.TempDir(), "manim")
	require.NoError(t, os.WriteFile(bin, []byte(`#!/bin/sh
stem=$(basename "$2" .py)
mkdir -p "media/videos/$stem/480p15"
: > "media/videos/$stem/480p15/$3.mp4"
`), 0o755))
	root := testutil.WriteFiles(t, map[string]string{"scene.json": sceneJSON})
	a, _, logs := newApp(t, config(t, filepath.Join(root, "scene.json"), func(c *app.Config) {
		c.Render = true
		c.ManimBinary = bin
	}))

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Video rendered.")
	assert.Contains(t, logs.String(), "GeneratedScene.mp4")
}

func TestApp_Run_Watch(t *testing.T) {
	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{"scene.json": sceneJSON})
	graphPath := filepath.Join(root, "scene.json")
	outPath := filepath.Join(root, "scene.py")
	a, _, logs := newApp(t, config(t, graphPath, func(c *app.Config) {
		c.OutPath = outPath
		c.Watch = true
		c.Debounce = 20 * time.Millisecond
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	readOut := func() string {
		b, _ := os.ReadFile(outPath)
		return string(b)
	}
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Watching for changes.")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, readOut(), "circle_1 = Circle(radius=2,")

	// --- Act ---
	updated := `{"nodes": [{"id": "c1", "type": "Circle", "data": {"name": "hero"}}], "edges": []}`
	require.NoError(t, os.WriteFile(graphPath, []byte(updated), 0o600))

	// --- Assert ---
	require.Eventually(t, func() bool {
		return strings.Contains(readOut(), "hero = Circle(")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
