package codegen

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/manimgraph/internal/catalog"
)

// presentsItself reports whether a node displays itself through its
// present parameter.
func (c *compilation) presentsItself(id string) bool {
	k := c.kinds[id]
	if k.IsAnimationProducer() {
		return false
	}
	if _, ok := k.Param("present"); !ok {
		return false
	}
	mode := c.params[id].Get("present")
	return mode != "" && mode != "none"
}

// presentation returns the animation a presenting node plays, or "" for
// the show mode, which adds without animating.
func (c *compilation) presentation(id string) string {
	v := c.vars[id]
	rt := c.params[id].Get("present_run_time")
	switch c.params[id].Get("present") {
	case "create":
		return fmt.Sprintf("Create(%s, run_time=%s)", v, rt)
	case "fadein":
		return fmt.Sprintf("FadeIn(%s, run_time=%s)", v, rt)
	case "write":
		return fmt.Sprintf("Write(%s, run_time=%s)", v, rt)
	}
	return ""
}

// present displays a presenting node now.
func (c *compilation) present(id string) {
	v := c.vars[id]
	if expr := c.presentation(id); expr != "" {
		c.emit("self.play(" + expr + ")")
		c.hasAnimations = true
	} else {
		c.emit("self.add(" + v + ")")
	}
	c.played[id] = true
	c.flushLabels(v)
}

// presentOutside handles presentation in the main walk. Sequences present
// their members at the slot; group members become `{var}_pres` values the
// group plays.
func (c *compilation) presentOutside(id string) {
	if !c.presentsItself(id) || c.inSequence[id] {
		return
	}
	if c.inGroup[id] {
		if expr := c.presentation(id); expr != "" {
			c.emit(c.vars[id] + "_pres = " + expr)
		}
		return
	}
	c.present(id)
}

// aliasOutputs binds `{var}_{output}` for every non-animation output of a
// multi-output kind.
func (c *compilation) aliasOutputs(id string) {
	k := c.kinds[id]
	if !k.AliasOutputs || len(k.Outputs) < 2 {
		return
	}
	v := c.vars[id]
	for _, out := range k.Outputs {
		if out.Name == "animation" {
			continue
		}
		c.emit(v + "_" + out.Name + " = " + v)
	}
}

// decorate emits the labels and exposed edges attached to a node. Labels
// wait in the pending table until the node first appears.
func (c *compilation) decorate(id string) error {
	k := c.kinds[id]
	params := c.params[id]
	v := c.vars[id]

	if k.IsAnimationProducer() {
		if _, ok := k.Output("label"); ok && params.Bool("write_label", false) {
			c.pending[v] = append(c.pending[v], v+"_label")
		}
		return nil
	}
	if k.Role != catalog.RoleShape {
		return nil
	}
	if k.EdgeSides > 0 {
		c.edgeShape(id)
		return nil
	}

	if label := params.Get("label"); label != "" {
		c.emit(
			fmt.Sprintf(`%s_label = MathTex(r"%s", font_size=%s)`, v, catalog.EscapeQuotes(label), params.Get("label_font_size")),
			fmt.Sprintf("%s_label.move_to(%s.get_center())", v, v),
		)
		c.pending[v] = append(c.pending[v], v+"_label")
	}
	return nil
}

// edgeShape exposes a polygon's sides as lines with outward label
// directions, and builds its center and edge labels.
func (c *compilation) edgeShape(id string) {
	k := c.kinds[id]
	params := c.params[id]
	v := c.vars[id]
	n := k.EdgeSides

	c.emit(v + "_shape = " + v)

	edgeLabels := strings.TrimSpace(params.Get("edge_labels"))
	used := false
	h := &hookContext{c: c, id: id}
	for i := 1; i <= n && !used; i++ {
		used = h.OutputUsed(fmt.Sprintf("side_%d", i))
	}
	used = used || h.OutputUsed("edges")

	if used || edgeLabels != "" {
		verts := "_verts_" + v
		c.emit(verts + " = " + v + ".get_vertices()")
		sides := make([]string, 0, n)
		for i := 0; i < n; i++ {
			side := fmt.Sprintf("%s_side_%d", v, i+1)
			sides = append(sides, side)
			c.emit(fmt.Sprintf("%s = Line(%s[%d], %s[%d], color=%s.get_color(), stroke_width=%s.get_stroke_width())",
				side, verts, i, verts, (i+1)%n, v, v))
		}
		c.emit(v + "_edges = VGroup(" + strings.Join(sides, ", ") + ")")

		centroid := "_centroid_" + v
		c.emit(centroid + " = np.mean(" + verts + ", axis=0)")
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			c.emit(fmt.Sprintf("_ed = %[1]s[%[2]d] - %[1]s[%[3]d]; "+
				"_perp = np.array([-_ed[1], _ed[0], 0]); "+
				"_perp = _perp / (np.linalg.norm(_perp) + 1e-10); "+
				"_mid = (%[1]s[%[3]d] + %[1]s[%[2]d]) / 2; "+
				"%[4]s._label_direction = -_perp if np.dot(_perp, %[5]s - _mid) > 0 else _perp",
				verts, j, i, sides[i], centroid))
		}
	}

	font := params.Get("label_font_size")
	offset := params.Get("label_offset")
	var labels []string

	if label := params.Get("label"); label != "" {
		lbl := v + "_center_label"
		c.emit(
			fmt.Sprintf(`%s = MathTex(r"%s", font_size=%s)`, lbl, catalog.EscapeQuotes(label), font),
			fmt.Sprintf("%s.move_to(%s.get_center())", lbl, v),
		)
		labels = append(labels, lbl)
	}

	if edgeLabels != "" {
		for i, text := range strings.Split(edgeLabels, ",") {
			text = strings.TrimSpace(text)
			if text == "" || i >= n {
				continue
			}
			side := fmt.Sprintf("%s_side_%d", v, i+1)
			lbl := side + "_label"
			c.emit(
				fmt.Sprintf(`%s = MathTex(r"%s", font_size=%s)`, lbl, catalog.EscapeQuotes(text), font),
				fmt.Sprintf("%s.move_to(%s.point_from_proportion(0.5) + %s * %s._label_direction)", lbl, side, offset, side),
			)
			labels = append(labels, lbl)
		}
	}

	if len(labels) > 0 {
		c.pending[v] = append(c.pending[v], labels...)
	}
}

// flushLabels adds the labels waiting for mob. A `_shape` alias flushes
// the labels of the shape it aliases, and an assembly flushes those of its
// members.
func (c *compilation) flushLabels(mob string) {
	if mob == "" {
		return
	}
	key := mob
	if _, ok := c.pending[key]; !ok {
		key = strings.TrimSuffix(mob, "_shape")
	}
	if labels, ok := c.pending[key]; ok {
		delete(c.pending, key)
		for _, lbl := range labels {
			c.emit("self.add(" + lbl + ")")
		}
	}
	for _, member := range c.assemblies[mob] {
		c.flushLabels(member)
	}
}
