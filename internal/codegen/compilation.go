package codegen

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/specialistvlad/manimgraph/internal/ctxlog"
	"github.com/specialistvlad/manimgraph/internal/diag"
	"github.com/specialistvlad/manimgraph/internal/graph"
)

var unsafeIdentChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// wire is the producer end of one connected input.
type wire struct {
	node     string
	handle   string // resolved output handle
	explicit bool   // the edge named its source handle
}

// compilation is the state of one Generate call.
type compilation struct {
	ctx context.Context
	cat *catalog.Catalog
	g   *graph.Graph

	nodes  map[string]*graph.Node
	kinds  map[string]*catalog.Kind
	params map[string]catalog.Params
	inputs map[graph.Port]wire

	// vars maps node ids to variables, varNodes the reverse.
	vars     map[string]string
	varNodes map[string]string
	counters map[string]int

	inSequence map[string]bool
	inGroup    map[string]bool
	// feedsAnim marks animation producers upstream of another one.
	feedsAnim map[string]bool

	// mobjects maps an animation node to the mobject variable it yields.
	mobjects map[string]string
	// pending maps a shape variable to labels waiting for it to appear.
	pending map[string][]string
	played  map[string]bool
	// failed marks nodes whose lowering was replaced by an error comment.
	failed map[string]bool
	// assemblies maps an assembly variable to the objects it groups.
	assemblies map[string][]string
	// built marks parallel groups lowered to a reusable value.
	built   map[string]bool
	groupOf map[string][]string
	lines   []string

	hasAnimations bool
}

func newCompilation(ctx context.Context, cat *catalog.Catalog, g *graph.Graph) *compilation {
	c := &compilation{
		ctx:        ctx,
		cat:        cat,
		g:          g,
		nodes:      make(map[string]*graph.Node, len(g.Nodes)),
		kinds:      make(map[string]*catalog.Kind, len(g.Nodes)),
		params:     make(map[string]catalog.Params, len(g.Nodes)),
		inputs:     make(map[graph.Port]wire, len(g.Edges)),
		vars:       make(map[string]string, len(g.Nodes)),
		varNodes:   make(map[string]string, len(g.Nodes)),
		counters:   make(map[string]int),
		inSequence: make(map[string]bool),
		inGroup:    make(map[string]bool),
		feedsAnim:  make(map[string]bool),
		mobjects:   make(map[string]string),
		pending:    make(map[string][]string),
		played:     make(map[string]bool),
		failed:     make(map[string]bool),
		built:      make(map[string]bool),
		assemblies: make(map[string][]string),
		groupOf:    make(map[string][]string),
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		c.nodes[n.ID] = n
		if n.IsFrame() {
			continue
		}
		k, ok := cat.Kind(n.Kind)
		if !ok {
			continue
		}
		c.kinds[n.ID] = k
		if p, err := k.Construct(n.Data); err == nil {
			c.params[n.ID] = p
		}
	}

	c.wireInputs()
	c.bindVariables()
	c.resolveJunctions()
	c.classify()
	return c
}

// wireInputs builds the input map keyed by resolved handles. The first edge
// into a handle wins; the validator rejects the others.
func (c *compilation) wireInputs() {
	for _, e := range c.g.Edges {
		targetHandle := e.TargetHandle
		if k, ok := c.kinds[e.Target]; ok {
			targetHandle = k.InputHandle(targetHandle)
		}
		key := graph.Port{Node: e.Target, Handle: targetHandle}
		if _, taken := c.inputs[key]; taken {
			continue
		}

		sourceHandle := e.SourceHandle
		if k, ok := c.kinds[e.Source]; ok {
			sourceHandle = k.OutputHandle(sourceHandle)
		}
		c.inputs[key] = wire{
			node:     e.Source,
			handle:   sourceHandle,
			explicit: e.SourceHandle != "" && e.SourceHandle != graph.DefaultHandle,
		}
	}
}

// bindVariables assigns every node its variable name in declaration order.
// Scene constant names are never handed to other nodes.
func (c *compilation) bindVariables() {
	used := make(map[string]bool, len(c.g.Nodes))
	for _, k := range c.cat.Kinds() {
		if k.Role == catalog.RoleConstant {
			used[k.Binds] = true
		}
	}
	for _, n := range c.g.Nodes {
		if _, done := c.vars[n.ID]; done {
			continue
		}
		k := c.kinds[n.ID]

		if k != nil && k.Role == catalog.RoleConstant {
			c.vars[n.ID] = k.Binds
			c.varNodes[k.Binds] = n.ID
			used[k.Binds] = true
			continue
		}

		name := c.baseName(n)
		if used[name] {
			suffix := 2
			for used[fmt.Sprintf("%s_%d", name, suffix)] {
				suffix++
			}
			name = fmt.Sprintf("%s_%d", name, suffix)
		}
		used[name] = true
		c.vars[n.ID] = name
		c.varNodes[name] = n.ID
	}
}

func (c *compilation) baseName(n graph.Node) string {
	if name := n.Data["name"]; name != "" {
		return sanitize(name)
	}
	prefix := strings.ReplaceAll(strings.ToLower(n.Kind), " ", "_")
	c.counters[prefix]++
	return fmt.Sprintf("%s_%d", prefix, c.counters[prefix])
}

// sanitize turns arbitrary text into a Python identifier.
func sanitize(name string) string {
	s := unsafeIdentChars.ReplaceAllString(name, "_")
	if s == "" {
		return "node"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

// resolveJunctions rebinds every junction to the variable feeding it,
// iterating until chained junctions settle.
func (c *compilation) resolveJunctions() {
	for pass := 0; pass <= len(c.g.Nodes); pass++ {
		changed := false
		for _, n := range c.g.Nodes {
			k := c.kinds[n.ID]
			if k == nil || k.Role != catalog.RoleJunction {
				continue
			}
			w, ok := c.inputs[graph.Port{Node: n.ID, Handle: k.InputHandle("")}]
			if !ok {
				continue
			}
			v := c.sourceVar(w)
			if c.vars[n.ID] != v {
				c.vars[n.ID] = v
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// sourceVar is the variable an input wired to w reads. A producer with
// several outputs is addressed through its per-handle alias when the edge
// names a handle.
func (c *compilation) sourceVar(w wire) string {
	v := c.vars[w.node]
	k := c.kinds[w.node]
	if k != nil && k.Role != catalog.RoleJunction && len(k.Outputs) > 1 && w.explicit {
		return v + "_" + w.handle
	}
	return v
}

// realWire follows junctions back to the first producer that is not one.
func (c *compilation) realWire(w wire) wire {
	visited := make(map[string]bool)
	for !visited[w.node] {
		visited[w.node] = true
		k := c.kinds[w.node]
		if k == nil || k.Role != catalog.RoleJunction {
			return w
		}
		up, ok := c.inputs[graph.Port{Node: w.node, Handle: k.InputHandle("")}]
		if !ok {
			return w
		}
		w = up
	}
	return w
}

func (c *compilation) realSource(w wire) string { return c.realWire(w).node }

// classify records which nodes are members of sequences and parallel
// groups and which animations feed another animation.
func (c *compilation) classify() {
	for _, n := range c.g.Nodes {
		k := c.kinds[n.ID]
		if k == nil {
			continue
		}
		switch k.Role {
		case catalog.RoleSequence:
			for _, m := range c.family(n.ID) {
				c.inSequence[m] = true
			}
		case catalog.RoleParallel:
			members := c.family(n.ID)
			c.groupOf[n.ID] = members
			for _, m := range members {
				c.inGroup[m] = true
			}
		}

		if !k.IsAnimationProducer() {
			continue
		}
		if up, ok := c.chainInput(n.ID); ok {
			if uk := c.kinds[up]; uk != nil && uk.IsAnimationProducer() {
				c.feedsAnim[up] = true
			}
		}
	}
}

// family returns the real producers wired to a composite's numbered
// handles, in handle order with gaps skipped.
func (c *compilation) family(id string) []string {
	k := c.kinds[id]
	var members []string
	for _, handle := range k.FamilyHandles() {
		if w, ok := c.inputs[graph.Port{Node: id, Handle: handle}]; ok {
			members = append(members, c.realSource(w))
		}
	}
	return members
}

// chainInput returns the real producer wired to a node's mobject or source
// input.
func (c *compilation) chainInput(id string) (string, bool) {
	for _, handle := range []string{"mobject", "source"} {
		if w, ok := c.inputs[graph.Port{Node: id, Handle: handle}]; ok {
			return c.realSource(w), true
		}
	}
	return "", false
}

// run lowers every scheduled node, isolating failures per node. The
// upstream chain a node plays first is lowered under its own isolation so a
// failure of the node leaves it intact.
func (c *compilation) run(order []string) {
	for i, id := range order {
		n := c.nodes[id]
		if n == nil || n.IsFrame() {
			continue
		}
		c.playChainOf(id)
		c.isolate(id, func() error { return c.lowerNode(i+1, id) })
	}
}

// isolate runs fn and turns an error or panic into a comment in place of
// whatever fn had emitted. Labels fn flushed go back to the pending table.
func (c *compilation) isolate(id string, fn func() error) {
	mark := len(c.lines)
	pending := maps.Clone(c.pending)
	hasAnimations := c.hasAnimations
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}

	c.failed[id] = true
	lerr := &diag.LoweringError{NodeID: id, Err: err}
	ctxlog.FromContext(ctxlog.WithNode(c.ctx, id)).Error("Failed to generate code for node.", "error", err)
	c.lines = append(c.lines[:mark], "# "+lerr.Error())
	c.pending = pending
	c.hasAnimations = hasAnimations
}

func (c *compilation) emit(lines ...string) {
	c.lines = append(c.lines, lines...)
}

// executionComment precedes every generic statement.
func (c *compilation) executionComment(index int, id string) string {
	n := c.nodes[id]
	order, ok := n.Data["order"]
	if !ok {
		order = "N/A"
	}
	return fmt.Sprintf("# Execution: %d, Order: %s, Type: %s, ID: %s", index, order, n.Kind, n.ID)
}
