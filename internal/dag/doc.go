// Package dag holds the dependency graph the validator schedules from: an
// insertion-ordered adjacency structure with depth-first cycle detection and
// a Kahn topological order that breaks ties with a caller-supplied hint.
//
// Every traversal follows insertion order, so the same sequence of AddNode
// and AddEdge calls always yields the same cycle report and the same order.
package dag
