package validator

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/specialistvlad/manimgraph/internal/dag"
	"github.com/specialistvlad/manimgraph/internal/diag"
	"github.com/specialistvlad/manimgraph/internal/graph"
)

// familyNouns names what a numbered handle family collects in arity messages.
var familyNouns = map[string]string{
	"anim": "animation",
	"obj":  "object",
	"m":    "matrix",
}

// Validator validates graphs against a catalog. Cycle results are cached per
// graph snapshot, so a graph must not be mutated between calls.
type Validator struct {
	cat *catalog.Catalog

	mu     sync.Mutex
	cycles map[*graph.Graph]cycleResult
}

type cycleResult struct {
	found    bool
	involved string
}

// New returns a validator backed by cat.
func New(cat *catalog.Catalog) *Validator {
	return &Validator{
		cat:    cat,
		cycles: make(map[*graph.Graph]cycleResult),
	}
}

// Validate reports whether g is valid, together with every problem found.
// Problems attributed to a node carry its id (see diag.NodeOf).
func (v *Validator) Validate(g *graph.Graph) (bool, []error) {
	if len(g.Nodes) == 0 {
		return false, []error{diag.Structural("", "Graph is empty")}
	}

	var errs []error
	seen := make(map[string]bool, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if seen[n.ID] {
			errs = append(errs, diag.Structural("", "Duplicate node id: %s", n.ID))
			continue
		}
		seen[n.ID] = true
		errs = append(errs, v.validateNode(g, n)...)
	}

	errs = append(errs, v.validateEdges(g)...)

	if found, involved := v.cycle(g); found {
		errs = append(errs, &diag.CycleError{Involved: involved})
	}

	return len(errs) == 0, errs
}

func (v *Validator) validateNode(g *graph.Graph, n *graph.Node) []error {
	if n.IsFrame() {
		return nil
	}

	k, ok := v.cat.Kind(n.Kind)
	if !ok {
		return []error{diag.Structural(n.ID, "Unknown node type: %s", n.Kind)}
	}

	if _, err := k.Construct(n.Data); err != nil {
		return []error{diag.Structural(n.ID, "Invalid node parameters: %s", err)}
	}

	connected := connectedInputs(g, n.ID, k)

	var errs []error
	switch k.Arity {
	case catalog.ArityAllOptional:
	case catalog.ArityAtLeastOne:
		for _, handle := range k.FamilyHandles() {
			if connected[handle] {
				return nil
			}
		}
		noun, ok := familyNouns[k.Family]
		if !ok {
			noun = k.Family
		}
		errs = append(errs, diag.Structural(n.ID, "%s node needs at least one %s connected", k.Name, noun))
	default:
		for _, p := range k.Inputs {
			if p.IsParam() || p.Optional {
				continue
			}
			if !connected[p.Name] {
				errs = append(errs, diag.Structural(n.ID, "Missing required input: %s", p.Name))
			}
		}
	}

	// An unfed junction has no variable to pass on.
	if k.Role == catalog.RoleJunction && !connected[k.InputHandle("")] && feedsAnything(g, n.ID) {
		errs = append(errs, diag.Structural(n.ID, "Junction has no input connected"))
	}
	return errs
}

func feedsAnything(g *graph.Graph, id string) bool {
	for _, e := range g.Edges {
		if e.Source == id {
			return true
		}
	}
	return false
}

// connectedInputs returns the resolved input handles of id that have an
// inbound edge.
func connectedInputs(g *graph.Graph, id string, k *catalog.Kind) map[string]bool {
	connected := make(map[string]bool)
	for _, e := range g.Edges {
		if e.Target != id {
			continue
		}
		if handle := k.InputHandle(e.TargetHandle); handle != "" {
			connected[handle] = true
		}
	}
	return connected
}

func (v *Validator) validateEdges(g *graph.Graph) []error {
	var errs []error
	inbound := make(map[graph.Port]bool, len(g.Edges))

	for _, e := range g.Edges {
		src, ok := g.Node(e.Source)
		if !ok {
			errs = append(errs, diag.Structural("", "Edge references non-existent source node: %s", e.Source))
			continue
		}
		tgt, ok := g.Node(e.Target)
		if !ok {
			errs = append(errs, diag.Structural("", "Edge references non-existent target node: %s", e.Target))
			continue
		}
		if src.IsFrame() || tgt.IsFrame() {
			continue
		}
		srcKind, srcOK := v.cat.Kind(src.Kind)
		tgtKind, tgtOK := v.cat.Kind(tgt.Kind)
		if !srcOK || !tgtOK {
			// Unknown kinds are already reported per node.
			continue
		}

		targetHandle := tgtKind.InputHandle(e.TargetHandle)
		key := graph.Port{Node: tgt.ID, Handle: targetHandle}
		if inbound[key] {
			errs = append(errs, diag.Structural(tgt.ID, "Input %s has more than one connection", targetHandle))
			continue
		}
		inbound[key] = true

		if err := v.checkTypes(g, e, src, srcKind, tgt, tgtKind, targetHandle); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// checkTypes checks one edge against the compatibility lattice. Junctions
// are transparent: edges into a junction are not checked, and edges out of
// one are checked against the producer feeding the junction.
func (v *Validator) checkTypes(g *graph.Graph, e graph.Edge, src *graph.Node, srcKind *catalog.Kind,
	tgt *graph.Node, tgtKind *catalog.Kind, targetHandle string) error {
	if tgtKind.Role == catalog.RoleJunction {
		return nil
	}

	sourceHandle := srcKind.OutputHandle(e.SourceHandle)
	if srcKind.Role == catalog.RoleJunction {
		var ok bool
		src, srcKind, sourceHandle, ok = v.throughJunctions(g, src)
		if !ok {
			return nil
		}
	}

	out, ok := srcKind.Output(sourceHandle)
	if !ok {
		return nil
	}
	in, ok := tgtKind.Input(targetHandle)
	if !ok {
		return nil
	}

	if !catalog.Compatible(out.Type, in.Type) {
		return &diag.TypeMismatchError{
			NodeID:     tgt.ID,
			SourceKind: srcKind.Name,
			SourceType: string(out.Type),
			TargetKind: tgtKind.Name,
			Handle:     targetHandle,
			TargetType: string(in.Type),
		}
	}
	return nil
}

// throughJunctions walks back from a junction to the first producer that is
// not a junction. It reports false for unconnected or looping junction chains.
func (v *Validator) throughJunctions(g *graph.Graph, junction *graph.Node) (*graph.Node, *catalog.Kind, string, bool) {
	inputs := g.Inputs()
	visited := make(map[string]bool)

	current := junction
	for {
		if visited[current.ID] {
			return nil, nil, "", false
		}
		visited[current.ID] = true

		k, ok := v.cat.Kind(current.Kind)
		if !ok {
			return nil, nil, "", false
		}
		upstream, ok := inputs.Lookup(current.ID, k.InputHandle(""))
		if !ok {
			upstream, ok = inputs.Lookup(current.ID, graph.DefaultHandle)
		}
		if !ok {
			return nil, nil, "", false
		}
		producer, ok := g.Node(upstream.Node)
		if !ok {
			return nil, nil, "", false
		}
		pk, ok := v.cat.Kind(producer.Kind)
		if !ok {
			return nil, nil, "", false
		}
		if pk.Role != catalog.RoleJunction {
			return producer, pk, pk.OutputHandle(upstream.Handle), true
		}
		current = producer
	}
}

// HasCycle reports whether g contains a directed cycle, self-loops included.
func (v *Validator) HasCycle(g *graph.Graph) bool {
	found, _ := v.cycle(g)
	return found
}

func (v *Validator) cycle(g *graph.Graph) (bool, string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if res, ok := v.cycles[g]; ok {
		return res.found, res.involved
	}

	var res cycleResult
	var cycleErr *dag.CycleError
	if err := build(g).DetectCycles(); errors.As(err, &cycleErr) {
		res.found = true
		res.involved = cycleErr.Node
	}
	v.cycles[g] = res
	return res.found, res.involved
}

// ExecutionOrder returns every node id in dependency order. Among nodes that
// become ready together, lower `order` values go first and ties keep the
// declaration order. A cyclic graph yields a *diag.CycleError.
func (v *Validator) ExecutionOrder(g *graph.Graph) ([]string, error) {
	if found, involved := v.cycle(g); found {
		return nil, &diag.CycleError{Involved: involved}
	}

	hints := make(map[string]float64, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, ok := hints[n.ID]; !ok {
			hints[n.ID] = OrderHint(n)
		}
	}

	order, err := build(g).TopologicalOrder(func(id string) float64 { return hints[id] })
	if err != nil {
		var incomplete *dag.IncompleteOrderError
		if errors.As(err, &incomplete) && len(incomplete.Remaining) > 0 {
			return nil, &diag.CycleError{Involved: incomplete.Remaining[0]}
		}
		return nil, &diag.CycleError{}
	}
	if len(order) != len(g.Nodes) {
		return nil, &diag.CycleError{}
	}
	return order, nil
}

// OrderHint returns the node's `order` field as a number, or 0 when it is
// unset or not numeric.
func OrderHint(n graph.Node) float64 {
	raw, ok := n.Data["order"]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return f
}

// build converts g into a dependency graph. Edges with a missing endpoint are
// dropped; Validate reports them.
func build(g *graph.Graph) *dag.Graph {
	d := dag.New()
	for _, n := range g.Nodes {
		d.AddNode(n.ID)
	}
	for _, e := range g.Edges {
		_ = d.AddEdge(e.Source, e.Target)
	}
	return d
}
