package integration_tests

import (
	"fmt"
	"testing"

	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const starManifest = `
kind "Star" {
  role     = "shape"
  template = "{{var}} = Star({{derived.star_points}})"
  output "shape" { type = shape }
  param "points" {
    type    = number
    default = 5
  }
}
`

const starScene = `{"nodes": [{"id": "s1", "type": "Star", "data": {"points": 6}}]}`

type starModule struct{}

func (starModule) Register(c *catalog.Catalog) {
	c.RegisterHook("star_points", func(hc catalog.HookContext) (string, error) {
		return fmt.Sprintf("n=%s", hc.Param("points")), nil
	})
}

// TestStartupValidation_MissingHook_Fails checks that a manifest referring
// to a hook no module registers stops the application from starting.
func TestStartupValidation_MissingHook_Fails(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"kinds/star.hcl": starManifest,
		"scene.json":     starScene,
	}

	// --- Act ---
	_, _, err := run(t, files, true)

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog validation failed")
	assert.Contains(t, err.Error(), "kind 'Star': template references derived hook 'star_points', which no module registers")
}

// TestStartupValidation_RegisteredHook_Compiles checks the same manifest
// once a module supplies the hook.
func TestStartupValidation_RegisteredHook_Compiles(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"kinds/star.hcl": starManifest,
		"scene.json":     starScene,
	}

	// --- Act ---
	out, _, err := run(t, files, true, starModule{})

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out, "        star_1 = Star(n=6)\n")
}

func TestStartupValidation_InvalidManifest_Fails(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"kinds/star.hcl": `kind "Star" { role = `,
		"scene.json":     starScene,
	}

	// --- Act ---
	_, _, err := run(t, files, true)

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog manifests")
}
