package testutil

import "github.com/specialistvlad/manimgraph/internal/graph"

// GraphBuilder assembles graphs for tests in declaration order.
type GraphBuilder struct {
	g graph.Graph
}

// NewGraph starts an empty graph.
func NewGraph() *GraphBuilder {
	return &GraphBuilder{g: graph.Graph{ID: "test", Name: "test"}}
}

// Node appends a node. kv is a flat list of data key/value pairs.
func (b *GraphBuilder) Node(id, kind string, kv ...string) *GraphBuilder {
	if len(kv)%2 != 0 {
		panic("testutil: Node data must be key/value pairs")
	}
	n := graph.Node{ID: id, Kind: kind}
	if len(kv) > 0 {
		n.Data = make(map[string]string, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			n.Data[kv[i]] = kv[i+1]
		}
	}
	b.g.Nodes = append(b.g.Nodes, n)
	return b
}

// Edge appends an edge. Empty handles are left omitted.
func (b *GraphBuilder) Edge(source, sourceHandle, target, targetHandle string) *GraphBuilder {
	b.g.Edges = append(b.g.Edges, graph.Edge{
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	})
	return b
}

// Build returns the assembled graph.
func (b *GraphBuilder) Build() *graph.Graph {
	g := b.g
	return &g
}
