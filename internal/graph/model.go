package graph

// FrameKind is the reserved kind of display-only frame nodes.
const FrameKind = "__groupFrame"

// DefaultHandle stands in for an omitted edge handle. It resolves to the
// sole or first declared port on that side of the edge.
const DefaultHandle = "default"

// Graph is one scene description.
type Graph struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Node is one unit of the graph. Data values are literal or expression text
// and are never interpreted by the compiler beyond parameter conversion.
type Node struct {
	ID       string            `json:"id" yaml:"id"`
	Kind     string            `json:"type" yaml:"type"`
	Data     map[string]string `json:"data,omitempty" yaml:"data,omitempty"`
	ParentID string            `json:"parentId,omitempty" yaml:"parentId,omitempty"`
}

// IsFrame reports whether the node is a display-only frame.
func (n *Node) IsFrame() bool { return n.Kind == FrameKind }

// Edge connects an output handle of Source to an input handle of Target.
type Edge struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	Source       string `json:"source" yaml:"source"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	Target       string `json:"target" yaml:"target"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
}

// SourcePort returns the edge's source endpoint with the handle defaulted.
func (e Edge) SourcePort() Port { return Port{Node: e.Source, Handle: orDefault(e.SourceHandle)} }

// TargetPort returns the edge's target endpoint with the handle defaulted.
func (e Edge) TargetPort() Port { return Port{Node: e.Target, Handle: orDefault(e.TargetHandle)} }

// Port addresses one handle of one node.
type Port struct {
	Node   string
	Handle string
}

func orDefault(handle string) string {
	if handle == "" {
		return DefaultHandle
	}
	return handle
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// InputMap maps a consumer's input port to the producer port feeding it.
type InputMap map[Port]Port

// Inputs builds the input map of the graph. When a target port has more than
// one inbound edge the first one in declaration order wins; the validator
// reports the rest.
func (g *Graph) Inputs() InputMap {
	m := make(InputMap, len(g.Edges))
	for _, e := range g.Edges {
		key := e.TargetPort()
		if _, taken := m[key]; taken {
			continue
		}
		m[key] = e.SourcePort()
	}
	return m
}

// Lookup returns the producer wired to (node, handle).
func (m InputMap) Lookup(node, handle string) (Port, bool) {
	p, ok := m[Port{Node: node, Handle: handle}]
	return p, ok
}
