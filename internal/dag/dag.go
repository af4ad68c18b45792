package dag

import (
	"fmt"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:     id,
		depSet: make(map[string]bool),
	}
	g.order = append(g.order, id)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. Adding the same
// edge twice is a no-op. Self-edges are accepted and reported as cycles.
func (g *Graph) AddEdge(fromID, toID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	if toNode.depSet[fromID] {
		return nil
	}
	toNode.depSet[fromID] = true
	toNode.deps = append(toNode.deps, fromNode)
	fromNode.dependents = append(fromNode.dependents, toNode)

	return nil
}

// DetectCycles checks the graph for any cycles. It returns a *CycleError
// naming the node at which the cycle closed, or nil.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with three sets of nodes:
	// permanent: nodes that have been fully visited and are not part of a cycle.
	// temporary: nodes currently in the recursion stack for the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return &CycleError{Node: n.id}
		}

		temporary[n.id] = true
		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// CycleError is returned by DetectCycles. Node is the node at which the
// depth-first search closed the cycle.
type CycleError struct {
	Node string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving node '%s'", e.Node)
}

// IncompleteOrderError is returned by TopologicalOrder when some nodes could
// never become ready, which only happens when they sit on or behind a cycle.
type IncompleteOrderError struct {
	Ordered   []string
	Remaining []string
}

func (e *IncompleteOrderError) Error() string {
	return fmt.Sprintf("topological order is incomplete: %d of %d nodes could not be scheduled",
		len(e.Remaining), len(e.Ordered)+len(e.Remaining))
}

// TopologicalOrder returns every node such that each node comes after all
// of its dependencies. Among nodes that become ready together, lower hints
// go first and equal hints keep insertion order. A nil hint treats all
// nodes as equal.
func (g *Graph) TopologicalOrder(hint HintFunc) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if hint == nil {
		hint = func(string) float64 { return 0 }
	}
	byHint := func(batch []*node) {
		sort.SliceStable(batch, func(i, j int) bool {
			return hint(batch[i].id) < hint(batch[j].id)
		})
	}

	inDegree := make(map[string]int, len(g.nodes))
	var ready []*node
	for _, id := range g.order {
		n := g.nodes[id]
		inDegree[id] = len(n.deps)
		if inDegree[id] == 0 {
			ready = append(ready, n)
		}
	}
	byHint(ready)

	order := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n.id)

		var released []*node
		for _, dependent := range n.dependents {
			inDegree[dependent.id]--
			if inDegree[dependent.id] == 0 {
				released = append(released, dependent)
			}
		}
		byHint(released)
		ready = append(ready, released...)
	}

	if len(order) != len(g.order) {
		var remaining []string
		for _, id := range g.order {
			if inDegree[id] > 0 {
				remaining = append(remaining, id)
			}
		}
		return order, &IncompleteOrderError{Ordered: order, Remaining: remaining}
	}
	return order, nil
}
