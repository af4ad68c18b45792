package codegen

import (
	"strings"

	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/specialistvlad/manimgraph/internal/graph"
)

// expandSequence plays the sequence's slots in handle order. Each slot is
// lowered at this point so runtime lookups such as the current center of a
// mobject see the effect of the slots before it.
func (c *compilation) expandSequence(id string) error {
	wait := strings.TrimSpace(c.params[id].Get("wait_time"))
	for _, member := range c.family(id) {
		if c.inlinesChain(member) {
			for _, up := range c.chain(member) {
				c.isolate(up, func() error { return c.inline(up) })
			}
		}
		c.isolate(member, func() error { return c.sequenceStep(member) })
		if wait != "" && !catalog.IsZero(wait) {
			c.emit("self.wait(" + wait + ")")
		}
	}
	return nil
}

func (c *compilation) sequenceStep(id string) error {
	k := c.kinds[id]
	switch {
	case k.Role == catalog.RoleSequence:
		return c.expandSequence(id)

	case k.Role == catalog.RoleShow:
		c.show(id)
		return nil

	case k.Role == catalog.RoleCamera:
		return c.cameraCommand(id)

	case k.Role == catalog.RoleParallel:
		if !c.built[id] {
			return nil
		}
		c.emit("self.play(" + c.vars[id] + ")")
		c.hasAnimations = true
		return c.finishGroup(id)

	case c.presentsItself(id):
		c.present(id)
		return nil
	}

	if c.played[id] {
		return nil
	}
	return c.inline(id)
}

// inlinesChain reports whether a sequence slot lowers and plays its
// upstream chain before itself.
func (c *compilation) inlinesChain(id string) bool {
	k := c.kinds[id]
	switch {
	case k.Role == catalog.RoleShow:
		return true
	case k.Role == catalog.RoleSequence, k.Role == catalog.RoleCamera, k.Role == catalog.RoleParallel:
		return false
	case c.presentsItself(id):
		return false
	}
	return !c.played[id]
}

// inline lowers an animation and plays it right away.
func (c *compilation) inline(id string) error {
	low, err := c.statement(id)
	if err != nil {
		return err
	}
	c.emit(low.lines...)
	if low.mob != "" {
		c.mobjects[id] = low.mob
	}
	if low.instant {
		return c.afterPlay(id, low.mob)
	}
	return c.play(id, low.mob)
}

// show adds a Show node's mobject to the scene without animating it.
func (c *compilation) show(id string) {
	mob := c.mobjects[id]
	if mob == "" {
		mob = c.vars[id] + "_mobject"
	}
	c.emit("self.add(" + mob + ")")
	c.flushLabels(mob)
	c.played[id] = true
}

func (c *compilation) cameraCommand(id string) error {
	low, err := c.statement(id)
	if err != nil {
		return err
	}
	c.emit("# Camera movement from " + c.nodes[id].Kind)
	c.emit(low.lines...)
	c.played[id] = true
	return nil
}

// lowerParallel plays the group's members together. A group that feeds a
// sequence or another group is built as a value instead and played there.
func (c *compilation) lowerParallel(index int, id string) error {
	members := c.groupOf[id]
	if len(members) == 0 {
		return nil
	}
	c.emit(c.executionComment(index, id))

	var anims []string
	for _, m := range members {
		k := c.kinds[m]
		switch {
		case k.Role == catalog.RoleCamera:
			if err := c.cameraCommand(m); err != nil {
				return err
			}
		case k.Role == catalog.RoleSequence:
			c.emit("# Sequence: play animations in order")
			c.hasAnimations = true
			if err := c.expandSequence(m); err != nil {
				return err
			}
		case k.Role == catalog.RoleShow:
			c.show(m)
		case c.presentsItself(m):
			if c.params[m].Get("present") == "show" {
				c.present(m)
				continue
			}
			anims = append(anims, c.vars[m]+"_pres")
		case c.instant(m), c.played[m]:
		default:
			anims = append(anims, c.vars[m])
		}
	}
	if len(anims) == 0 {
		return nil
	}

	args := strings.Join(anims, ", ")
	if lag := strings.TrimSpace(c.params[id].Get("lag_ratio")); lag != "" && !catalog.IsZero(lag) {
		args += ", lag_ratio=" + lag
	}
	args += ", run_time=" + c.params[id].Get("run_time")

	if c.inSequence[id] || c.inGroup[id] {
		c.emit(c.vars[id] + " = AnimationGroup(" + args + ")")
		c.built[id] = true
		return nil
	}
	c.emit("self.play(" + args + ")")
	c.hasAnimations = true
	return c.finishGroup(id)
}

// finishGroup marks a played group's members as played and runs what
// depends on them having played.
func (c *compilation) finishGroup(id string) error {
	for _, m := range c.groupOf[id] {
		if c.played[m] {
			continue
		}
		k := c.kinds[m]
		switch {
		case k.Role == catalog.RoleParallel:
			c.played[m] = true
			if err := c.finishGroup(m); err != nil {
				return err
			}
		case c.presentsItself(m):
			c.played[m] = true
			c.flushLabels(c.vars[m])
		case k.IsAnimationProducer():
			if err := c.afterPlay(m, c.mobjects[m]); err != nil {
				return err
			}
		default:
			c.played[m] = true
		}
	}
	return nil
}

// lowerAssembly groups the connected objects into one VGroup and moves it
// to its pivot.
func (c *compilation) lowerAssembly(id string) error {
	k := c.kinds[id]
	var objs []string
	for _, handle := range k.FamilyHandles() {
		w, ok := c.inputs[graph.Port{Node: id, Handle: handle}]
		if !ok {
			continue
		}
		real := c.realSource(w)
		if rk := c.kinds[real]; rk != nil && rk.IsAnimationProducer() {
			mob := c.mobjectOf(real, w.node)
			if mob == "" {
				mob = c.vars[real] + "_mobject"
			}
			objs = append(objs, mob)
			continue
		}
		objs = append(objs, c.sourceVar(w))
	}
	if len(objs) == 0 {
		return nil
	}

	v := c.vars[id]
	c.assemblies[v] = objs
	c.emit(v + " = VGroup(" + strings.Join(objs, ", ") + ")")
	switch c.params[id].Get("pivot") {
	case "first":
		c.emit(v + ".move_to(" + objs[0] + ".get_center())")
	case "last":
		c.emit(v + ".move_to(" + objs[len(objs)-1] + ".get_center())")
	case "mean":
		c.emit(v + ".move_to(" + v + ".get_center())")
	case "min":
		c.emit(v + ".move_to(" + v + ".get_corner(DL))")
	case "max":
		c.emit(v + ".move_to(" + v + ".get_corner(UR))")
	}
	return nil
}
