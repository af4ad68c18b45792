package integration_tests

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/manimgraph/internal/app"
	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/specialistvlad/manimgraph/internal/testutil"
	"github.com/stretchr/testify/require"
)

// run writes files into a fresh directory and compiles scene.json with the
// "kinds" fixture directory, when present, as the catalog.
func run(t *testing.T, files map[string]string, catalogDir bool, modules ...catalog.Module) (string, string, error) {
	t.Helper()
	root := testutil.WriteFiles(t, files)
	cfg := app.Config{
		GraphPath: filepath.Join(root, "scene.json"),
		LogFormat: "text",
		LogLevel:  "debug",
		Quality:   "480p",
		FPS:       15,
	}
	if catalogDir {
		cfg.CatalogPath = filepath.Join(root, "kinds")
	}
	conf, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	a, err := app.NewApp(out, logs, conf, modules...)
	if err != nil {
		return "", logs.String(), err
	}
	err = a.Run(context.Background())
	return out.String(), logs.String(), err
}
