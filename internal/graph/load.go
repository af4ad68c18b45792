package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/manimgraph/internal/ctxlog"
	"github.com/specialistvlad/manimgraph/internal/diag"
	"github.com/specialistvlad/manimgraph/internal/hclutil"
	"gopkg.in/yaml.v3"
)

// Extensions lists the graph document extensions Load understands.
var Extensions = []string{".json", ".yaml", ".yml", ".hcl"}

// Load reads a graph document, choosing the decoder by file extension.
func Load(ctx context.Context, path string) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading graph document.", "path", path)

	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &diag.NotFoundError{What: "graph file", Name: path}
		}
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var g *Graph
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		g, err = DecodeJSON(bytes.NewReader(src))
	case ".yaml", ".yml":
		g, err = DecodeYAML(bytes.NewReader(src))
	case ".hcl":
		g, err = DecodeHCL(src, path)
	default:
		return nil, fmt.Errorf("unsupported graph file extension %q (want one of %s)", ext, strings.Join(Extensions, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse graph file %s: %w", path, err)
	}

	logger.Debug("Graph document loaded.", "path", path, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return g, nil
}

// document mirrors Graph with untyped node data, so that numbers, booleans
// and lists in the source document can be rendered back to literal text.
type document struct {
	ID    string         `json:"id" yaml:"id"`
	Name  string         `json:"name" yaml:"name"`
	Nodes []documentNode `json:"nodes" yaml:"nodes"`
	Edges []Edge         `json:"edges" yaml:"edges"`
}

type documentNode struct {
	ID       string         `json:"id" yaml:"id"`
	Type     string         `json:"type" yaml:"type"`
	Data     map[string]any `json:"data" yaml:"data"`
	ParentID string         `json:"parentId" yaml:"parentId"`
}

// DecodeJSON reads a React Flow style JSON graph document.
func DecodeJSON(r io.Reader) (*Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.graph()
}

// DecodeYAML reads the same document shape as DecodeJSON from YAML.
func DecodeYAML(r io.Reader) (*Graph, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.graph()
}

func (d *document) graph() (*Graph, error) {
	g := &Graph{ID: d.ID, Name: d.Name, Edges: d.Edges}
	for _, dn := range d.Nodes {
		n := Node{ID: dn.ID, Kind: dn.Type, ParentID: dn.ParentID}
		if len(dn.Data) > 0 {
			n.Data = make(map[string]string, len(dn.Data))
			for key, raw := range dn.Data {
				if raw == nil {
					continue
				}
				text, err := literal(raw)
				if err != nil {
					return nil, fmt.Errorf("node %s: field %s: %w", dn.ID, key, err)
				}
				n.Data[key] = text
			}
		}
		g.Nodes = append(g.Nodes, n)
	}
	return g, nil
}

func literal(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, elem := range t {
			s, err := literal(elem)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{{Type: "graph", LabelNames: []string{"name"}}},
}

type hclGraph struct {
	ID    string     `hcl:"id,optional"`
	Nodes []*hclNode `hcl:"node,block"`
	Edges []*hclEdge `hcl:"edge,block"`
}

type hclNode struct {
	ID     string         `hcl:"id,label"`
	Kind   string         `hcl:"kind"`
	Parent string         `hcl:"parent,optional"`
	Data   hcl.Expression `hcl:"data,optional"`
}

type hclEdge struct {
	ID           string `hcl:"id,optional"`
	Source       string `hcl:"source"`
	SourceHandle string `hcl:"source_handle,optional"`
	Target       string `hcl:"target"`
	TargetHandle string `hcl:"target_handle,optional"`
}

// DecodeHCL reads a graph from an HCL document holding exactly one
// `graph "name" { node ... edge ... }` block.
func DecodeHCL(src []byte, filename string) (*Graph, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	block, diags := hclutil.FindUniqueBlock(content.Blocks, "graph")
	if diags.HasErrors() {
		return nil, diags
	}
	if block == nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing graph block",
			Detail:   "A graph document must contain one graph block.",
			Subject:  file.Body.MissingItemRange().Ptr(),
		}}
	}

	var hg hclGraph
	if diags := gohcl.DecodeBody(block.Body, nil, &hg); diags.HasErrors() {
		return nil, diags
	}

	g := &Graph{ID: hg.ID, Name: block.Labels[0]}
	for _, hn := range hg.Nodes {
		n := Node{ID: hn.ID, Kind: hn.Kind, ParentID: hn.Parent}
		data, diags := decodeData(hn.Data)
		if diags.HasErrors() {
			return nil, diags
		}
		n.Data = data
		g.Nodes = append(g.Nodes, n)
	}
	for _, he := range hg.Edges {
		g.Edges = append(g.Edges, Edge{
			ID:           he.ID,
			Source:       he.Source,
			SourceHandle: he.SourceHandle,
			Target:       he.Target,
			TargetHandle: he.TargetHandle,
		})
	}
	return g, nil
}

func decodeData(expr hcl.Expression) (map[string]string, hcl.Diagnostics) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() || val.IsNull() {
		return nil, diags
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid node data",
			Detail:   "The 'data' attribute must be an object of parameter values.",
			Subject:  expr.Range().Ptr(),
		}}
	}

	raw := val.AsValueMap()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := make(map[string]string, len(raw))
	for _, k := range keys {
		text, err := hclutil.LiteralText(raw[k])
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid node data",
				Detail:   fmt.Sprintf("Field %q: %s.", k, err),
				Subject:  expr.Range().Ptr(),
			})
			continue
		}
		data[k] = text
	}
	return data, diags
}
