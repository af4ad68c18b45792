package codegen

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/specialistvlad/manimgraph/internal/graph"
)

// lowered is the outcome of running one node's template.
type lowered struct {
	lines   []string
	mob     string // mobject variable the node acts on, "" when none
	instant bool   // the statement applies its effect without an animation
}

// lowerNode lowers one scheduled node in the main walk.
func (c *compilation) lowerNode(index int, id string) error {
	k := c.kinds[id]
	if k == nil {
		return fmt.Errorf("unknown node type: %s", c.nodes[id].Kind)
	}

	if k.IsPassThrough() {
		return nil
	}

	switch k.Role {
	case catalog.RoleSequence:
		if c.inSequence[id] || c.inGroup[id] {
			return nil
		}
		c.emit("# Sequence: play animations in order")
		c.hasAnimations = true
		return c.expandSequence(id)
	case catalog.RoleParallel:
		return c.lowerParallel(index, id)
	case catalog.RoleAssembly:
		return c.lowerAssembly(id)
	case catalog.RoleCamera:
		if c.inSequence[id] || c.inGroup[id] {
			return nil
		}
	}

	if c.inSequence[id] && !c.presentsItself(id) {
		c.prepopulate(id)
		return nil
	}

	c.emit(c.executionComment(index, id))
	low, err := c.statement(id)
	if err != nil {
		return err
	}
	c.emit(low.lines...)
	if low.mob != "" {
		c.mobjects[id] = low.mob
	}

	if err := c.decorate(id); err != nil {
		return err
	}
	c.aliasOutputs(id)
	c.presentOutside(id)

	if !c.standalone(id) {
		return nil
	}
	if k.Role == catalog.RoleShow {
		c.emit("self.add(" + low.mob + ")")
		c.flushLabels(low.mob)
		c.played[id] = true
		return nil
	}
	if low.instant {
		return c.afterPlay(id, low.mob)
	}
	return c.play(id, low.mob)
}

// standalone reports whether an animation producer plays on its own: it is
// not a member of a sequence or group and no other animation builds on it.
func (c *compilation) standalone(id string) bool {
	k := c.kinds[id]
	if !k.IsAnimationProducer() {
		return false
	}
	return !c.inSequence[id] && !c.inGroup[id] && !c.feedsAnim[id]
}

// play emits the play of an already-lowered animation and the statements
// that depend on it having run.
func (c *compilation) play(id, mob string) error {
	c.emit("self.play(" + c.vars[id] + ")")
	c.played[id] = true
	c.hasAnimations = true
	return c.afterPlay(id, mob)
}

func (c *compilation) afterPlay(id, mob string) error {
	c.played[id] = true
	k := c.kinds[id]
	if k.AfterPlay != nil && mob != "" {
		lines, err := c.expand(id, k.AfterPlay, mob)
		if err != nil {
			return err
		}
		c.emit(lines...)
	}
	c.flushLabels(mob)
	c.flushLabels(c.vars[id])
	return nil
}

// chain returns the un-played animations upstream of id through its mobject
// or source input that are not members of any sequence or group, oldest
// first.
func (c *compilation) chain(id string) []string {
	var upstream []string
	visited := map[string]bool{id: true}
	current := id
	for {
		up, ok := c.chainInput(current)
		if !ok || visited[up] {
			break
		}
		visited[up] = true
		k := c.kinds[up]
		if k == nil || !k.IsAnimationProducer() {
			break
		}
		if !c.inSequence[up] && !c.inGroup[up] && !c.played[up] && !c.failed[up] {
			upstream = append(upstream, up)
		}
		current = up
	}
	for i, j := 0, len(upstream)-1; i < j; i, j = i+1, j-1 {
		upstream[i], upstream[j] = upstream[j], upstream[i]
	}
	return upstream
}

// playChain plays the upstream chain of id whose statements the main walk
// already emitted, each play isolated on its own.
func (c *compilation) playChain(id string) {
	for _, up := range c.chain(id) {
		if c.instant(up) {
			c.played[up] = true
			continue
		}
		c.isolate(up, func() error { return c.play(up, c.mobjects[up]) })
	}
}

// playChainOf plays the upstream chains the main walk must have played
// before it lowers id.
func (c *compilation) playChainOf(id string) {
	k := c.kinds[id]
	if k == nil || k.IsPassThrough() {
		return
	}
	switch k.Role {
	case catalog.RoleSequence, catalog.RoleAssembly:
	case catalog.RoleParallel:
		for _, m := range c.groupOf[id] {
			c.playChain(m)
		}
	default:
		if c.standalone(id) {
			c.playChain(id)
		}
	}
}

// prepopulate records the mobject of an animation the main walk skips
// because a sequence lowers it later, so downstream nodes can refer to it.
func (c *compilation) prepopulate(id string) {
	for _, handle := range []string{"mobject", "source"} {
		w, ok := c.inputs[graph.Port{Node: id, Handle: handle}]
		if !ok {
			continue
		}
		real := c.realSource(w)
		if rk := c.kinds[real]; rk != nil && rk.IsAnimationProducer() {
			if mob := c.mobjectOf(real, w.node); mob != "" {
				c.mobjects[id] = mob
				return
			}
		}
		c.mobjects[id] = c.sourceVar(w)
		return
	}
}

// mobjectOf is the tracked mobject of an animation reached through via.
func (c *compilation) mobjectOf(real, via string) string {
	if mob := c.mobjects[real]; mob != "" {
		return mob
	}
	return c.mobjects[via]
}

// statement lowers the node's template into statements without playing it.
func (c *compilation) statement(id string) (*lowered, error) {
	k := c.kinds[id]
	tmpl := k.SelectTemplate(c.params[id])
	low := &lowered{instant: c.instant(id)}
	if k.AssemblyTemplate != nil && c.overAssembly(id) {
		tmpl = k.AssemblyTemplate
		low.lines = append(low.lines, "# Create each object in group")
	}
	if tmpl == nil {
		return nil, fmt.Errorf("kind %s has no template", k.Name)
	}

	mobHandle, mob, prelude := c.mobjectInput(id)
	low.mob = mob
	low.lines = append(low.lines, prelude...)

	body, err := c.expandWith(id, tmpl, mob, mobHandle)
	if err != nil {
		return nil, err
	}
	low.lines = append(low.lines, body...)
	return low, nil
}

// instant reports whether the node applies its effect without animating.
func (c *compilation) instant(id string) bool {
	k := c.kinds[id]
	return k.InstantTemplate != nil && k.SelectTemplate(c.params[id]) == k.InstantTemplate
}

// overAssembly reports whether the node's mobject input is an assembly.
func (c *compilation) overAssembly(id string) bool {
	w, ok := c.inputs[graph.Port{Node: id, Handle: "mobject"}]
	if !ok {
		return false
	}
	k := c.kinds[c.realSource(w)]
	return k != nil && k.Role == catalog.RoleAssembly
}

// mobjectInput resolves the first connected mobject or source input. With
// copy set, the operand becomes a fresh `{var}_src` copy.
func (c *compilation) mobjectInput(id string) (handle, mob string, prelude []string) {
	for _, h := range []string{"mobject", "source"} {
		text, ok := c.inputValue(id, h)
		if !ok {
			continue
		}
		if c.params[id].Bool("copy", false) {
			src := c.vars[id] + "_src"
			return h, src, []string{src + " = " + text + ".copy()"}
		}
		return h, text, nil
	}
	return "", "", nil
}

// inputValue is the text an input placeholder resolves to when the input is
// connected: the tracked mobject for animation producers, the producer's
// variable or alias otherwise.
func (c *compilation) inputValue(id, handle string) (string, bool) {
	w, ok := c.inputs[graph.Port{Node: id, Handle: handle}]
	if !ok {
		return "", false
	}
	rw := c.realWire(w)
	if rk := c.kinds[rw.node]; rk != nil && rk.IsAnimationProducer() && yieldsMobject(rk, rw.handle) {
		if mob := c.mobjectOf(rw.node, w.node); mob != "" {
			return mob, true
		}
		return c.vars[rw.node] + "_mobject", true
	}
	return c.sourceVar(w), true
}

// yieldsMobject reports whether reading handle from an animation producer
// means reading the mobject it acts on. Other outputs are values the
// producer binds itself, such as a constructed square or its center.
func yieldsMobject(k *catalog.Kind, handle string) bool {
	out, ok := k.Output(handle)
	if !ok {
		return true
	}
	return out.Type == catalog.Animation || strings.HasSuffix(out.Name, "_out")
}

// expand runs a secondary template such as an after-play statement.
func (c *compilation) expand(id string, tmpl *catalog.Template, mob string) ([]string, error) {
	return c.expandWith(id, tmpl, mob, "")
}

// expandWith performs the two substitution phases and splits the result into
// statements. Blank statements are dropped.
func (c *compilation) expandWith(id string, tmpl *catalog.Template, mob, mobHandle string) ([]string, error) {
	// Phase 1: inputs, fields and the variable name.
	first, err := tmpl.Substitute(func(s catalog.Segment) (string, bool, error) {
		switch s.Kind {
		case catalog.SegVar:
			return c.vars[id], true, nil
		case catalog.SegField:
			return c.params[id].Get(s.Name), true, nil
		case catalog.SegInput:
			if s.Name == mobHandle && mob != "" {
				return mob, true, nil
			}
			text, err := c.resolveInput(id, s.Name)
			return text, err == nil, err
		}
		return "", false, nil
	})
	if err != nil {
		return nil, err
	}

	// Phase 2: the mobject reference and derived hooks.
	h := &hookContext{c: c, id: id, mob: mob}
	second, err := first.Substitute(func(s catalog.Segment) (string, bool, error) {
		switch s.Kind {
		case catalog.SegMobject:
			if mob == "" {
				return "", false, fmt.Errorf("no mobject connected")
			}
			return mob, true, nil
		case catalog.SegDerived:
			hook, ok := c.cat.Hook(s.Name)
			if !ok {
				return "", false, fmt.Errorf("derived hook '%s' is not registered", s.Name)
			}
			text, err := hook(h)
			if err != nil {
				return "", false, fmt.Errorf("%s: %w", s.Name, err)
			}
			return text, true, nil
		}
		return "", false, nil
	})
	if err != nil {
		return nil, err
	}

	text, err := second.Resolved()
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// resolveInput resolves one {{in.handle}} placeholder: the connected value,
// or for an unconnected parameter input the node's own literal.
func (c *compilation) resolveInput(id, handle string) (string, error) {
	if text, ok := c.inputValue(id, handle); ok {
		if handle == catalog.ParamPrefix+"angle_rad" {
			return "np.radians(" + text + ")", nil
		}
		return text, nil
	}

	port, ok := c.kinds[id].Input(handle)
	if !ok || !port.IsParam() {
		return "", fmt.Errorf("input '%s' is not connected", handle)
	}
	return c.paramFallback(id, port.Field()), nil
}

// paramFallback is the literal an unconnected parameter input falls back to.
func (c *compilation) paramFallback(id, field string) string {
	k := c.kinds[id]
	params := c.params[id]
	declared := func(name string) bool {
		_, ok := k.Param(name)
		return ok
	}
	valueOr := func(name, fallback string) string {
		if declared(name) {
			return params.Get(name)
		}
		return fallback
	}

	switch {
	case field == "angle_rad":
		return "np.radians(" + valueOr("angle", "90.0") + ")"
	case field == "color":
		return catalog.QuoteColor(valueOr("color", "#FFFFFF"))
	case declared(field):
		return params.Get(field)
	}

	// Fields renamed over time are still accepted in their old, split form.
	raw := c.nodes[id].Data
	component := func(key, fallback string) string {
		if v, ok := raw[key]; ok && v != "" {
			return v
		}
		return fallback
	}
	split := func(prefix, zDefault string) (string, bool) {
		if _, ok := raw[prefix+"x"]; !ok {
			return "", false
		}
		return fmt.Sprintf("[%s, %s, %s]",
			component(prefix+"x", "0"), component(prefix+"y", "0"), component(prefix+"z", zDefault)), true
	}
	shims := map[string]struct{ prefix, z string }{
		"position": {"", "0"},
		"start":    {"start_", "0"},
		"end":      {"end_", "0"},
		"axis":     {"axis_", "1"},
		"target":   {"target_", "0"},
	}
	if shim, ok := shims[field]; ok {
		if text, ok := split(shim.prefix, shim.z); ok {
			return text
		}
	}
	return "0"
}

// hookContext is what derived hooks see of the node being lowered.
type hookContext struct {
	c   *compilation
	id  string
	mob string
}

func (h *hookContext) Kind() *catalog.Kind { return h.c.kinds[h.id] }
func (h *hookContext) NodeID() string { return h.id }
func (h *hookContext) Var() string { return h.c.vars[h.id] }
func (h *hookContext) Mobject() string { return h.mob }
func (h *hookContext) Param(name string) string { return h.c.params[h.id].Get(name) }
func (h *hookContext) Params() catalog.Params { return h.c.params[h.id] }

func (h *hookContext) Connected(handle string) (string, bool) {
	return h.c.inputValue(h.id, handle)
}

func (h *hookContext) ConnectedFamily(prefix string) []string {
	var values []string
	for _, p := range h.Kind().Inputs {
		if !catalog.IsFamilyHandle(prefix, p.Name) {
			continue
		}
		if v, ok := h.c.inputValue(h.id, p.Name); ok {
			values = append(values, v)
		}
	}
	return values
}

func (h *hookContext) OutputUsed(handle string) bool {
	k := h.Kind()
	for _, e := range h.c.g.Edges {
		if e.Source == h.id && k.OutputHandle(e.SourceHandle) == handle {
			return true
		}
	}
	return false
}
