package integration_tests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/specialistvlad/manimgraph/internal/app"
	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/specialistvlad/manimgraph/internal/testutil"
	"github.com/stretchr/testify/require"
)

// result is what one compile through the application produced.
type result struct {
	Out  string
	Logs string
	Err  error
}

// compileFiles writes files into a fresh directory and compiles graphFile
// through the application once. A "kinds" directory among the fixtures is
// used as the catalog directory.
func compileFiles(t *testing.T, files map[string]string, graphFile string, modules ...catalog.Module) result {
	t.Helper()
	root := testutil.WriteFiles(t, files)

	cfg := app.Config{
		GraphPath: filepath.Join(root, graphFile),
		LogFormat: "text",
		LogLevel:  "debug",
		Quality:   "480p",
		FPS:       15,
	}
	if _, err := os.Stat(filepath.Join(root, "kinds")); err == nil {
		cfg.CatalogPath = filepath.Join(root, "kinds")
	}
	conf, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	a, err := app.NewApp(out, logs, conf, modules...)
	if err == nil {
		err = a.Run(context.Background())
	}
	t.Cleanup(func() {
		if os.Getenv("MANIMGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return result{Out: out.String(), Logs: logs.String(), Err: err}
}

var executionComment = regexp.MustCompile(`# Execution: \d+, Order: \S+, Type: \S+, ID: (\S+)`)

// executionOrder reads the node ids back out of the execution comments.
func executionOrder(text string) []string {
	var ids []string
	for _, m := range executionComment.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// statements returns the scene body without its indentation.
func statements(text string) []string {
	_, rest, found := strings.Cut(text, "    def construct(self):\n")
	if !found {
		return nil
	}
	var out []string
	for _, line := range strings.Split(strings.TrimRight(rest, "\n"), "\n") {
		out = append(out, strings.TrimPrefix(line, "        "))
	}
	return out
}
