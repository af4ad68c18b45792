package dag

import "sync"

// Graph is a collection of nodes and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map and the order slice.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order lists node IDs in the order they were first added.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id string
	// deps holds the nodes this node depends on, in edge insertion order.
	deps []*node
	// dependents holds the nodes that depend on this node, in edge insertion order.
	dependents []*node
	// depSet deduplicates deps.
	depSet map[string]bool
}

// HintFunc returns the ordering hint of a node. Lower hints are scheduled
// first among nodes that are ready at the same time.
type HintFunc func(id string) float64
