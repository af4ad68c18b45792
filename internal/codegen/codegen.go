package codegen

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/specialistvlad/manimgraph/internal/ctxlog"
	"github.com/specialistvlad/manimgraph/internal/diag"
	"github.com/specialistvlad/manimgraph/internal/graph"
	"github.com/specialistvlad/manimgraph/internal/validator"
)

const (
	// SceneClass is the name of the generated scene.
	SceneClass = "GeneratedScene"

	header = "from manim import *\nimport math\nimport numpy as np\n\n" +
		"class " + SceneClass + "(ThreeDScene):\n    def construct(self):\n"

	indent = "        "
)

// Program is the result of one successful compile.
type Program struct {
	// Text is the complete Python source of the scene.
	Text string
	// Vars maps every emitted variable name to the node it was bound for.
	Vars map[string]string
	// Order is the execution order the program was generated in.
	Order []string
}

// NodeForError returns the node whose variable appears in text, or "" when
// none does. Longer names are tried first and a match must sit on
// identifier boundaries, so `circle_1` never matches inside `circle_10`.
func (p *Program) NodeForError(text string) string {
	names := make([]string, 0, len(p.Vars))
	for name := range p.Vars {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		re := regexp.MustCompile(`(^|[^A-Za-z0-9_])` + regexp.QuoteMeta(name) + `($|[^A-Za-z0-9_])`)
		if re.MatchString(text) {
			return p.Vars[name]
		}
	}
	return ""
}

// Generator compiles graphs against one catalog.
type Generator struct {
	cat *catalog.Catalog
}

// New returns a generator backed by cat.
func New(cat *catalog.Catalog) *Generator {
	return &Generator{cat: cat}
}

// Generate validates g and lowers it. Validation failures are returned as a
// *diag.CompilationError; failures while lowering a single node are written
// into the program as comments and do not fail the compile.
func (gen *Generator) Generate(ctx context.Context, g *graph.Graph) (*Program, error) {
	logger := ctxlog.FromContext(ctx)

	v := validator.New(gen.cat)
	if ok, errs := v.Validate(g); !ok {
		logger.Warn("Graph validation failed.", "graph", g.ID, "problems", len(errs))
		return nil, diag.NewCompilationError(errs)
	}

	order, err := v.ExecutionOrder(g)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule graph: %w", err)
	}

	c := newCompilation(ctx, gen.cat, g)
	c.run(order)

	body := c.lines
	if !c.hasAnimations && len(body) > 0 {
		body = append(body, "self.wait(2)  # Show static scene")
	}
	if len(body) == 0 {
		body = append(body, "pass")
	}

	var b strings.Builder
	b.WriteString(header)
	for _, line := range body {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteByte('\n')
	}

	logger.Info("Graph compiled.", "graph", g.ID, "nodes", len(g.Nodes), "statements", len(c.lines))

	return &Program{
		Text:  b.String(),
		Vars:  c.varNodes,
		Order: order,
	}, nil
}
