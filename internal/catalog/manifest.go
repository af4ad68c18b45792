// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file parses kind manifests. A manifest file holds one or more `kind`
// blocks; each declares the kind's ports, parameters and lowering templates.
// Everything that can be checked without the Go hook registry is checked
// here and reported as HCL diagnostics against the offending block.
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/manimgraph/internal/ctxlog"
	"github.com/specialistvlad/manimgraph/internal/hclutil"
	"github.com/zclconf/go-cty/cty"
)

// kindRootSchema defines the top-level structure of a manifest file.
type kindRootSchema struct {
	Kinds []*hclKind `hcl:"kind,block"`
}

// hclKind represents a single 'kind' block for decoding purposes.
type hclKind struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var kindBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "category"},
		{Name: "description"},
		{Name: "role", Required: true},
		{Name: "arity"},
		{Name: "family"},
		{Name: "binds"},
		{Name: "template"},
		{Name: "instant_template"},
		{Name: "assembly_template"},
		{Name: "after_play"},
		{Name: "edge_sides"},
		{Name: "alias_outputs"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "input", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
		{Type: "variadic", LabelNames: []string{"name"}},
		{Type: "param", LabelNames: []string{"name"}},
		{Type: "variant", LabelNames: []string{"value"}},
	},
}

var portBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "optional"},
		{Name: "description"},
	},
}

var variadicBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "count", Required: true},
	},
}

var paramBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "default"},
		{Name: "min"},
		{Name: "max"},
		{Name: "one_of"},
		{Name: "description"},
	},
}

var variantBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "param", Required: true},
		{Name: "template", Required: true},
	},
}

// ParseManifest decodes an HCL file holding one or more 'kind' blocks.
func ParseManifest(ctx context.Context, file *hcl.File, filePath string) ([]*Kind, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing kind definitions from file.", "file_path", filePath)

	var allDiags hcl.Diagnostics
	if file == nil {
		return nil, hcl.Diagnostics{{Severity: hcl.DiagError, Summary: "HCL file is nil"}}
	}

	root := &kindRootSchema{}
	diags := gohcl.DecodeBody(file.Body, nil, root)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	kinds := make([]*Kind, 0, len(root.Kinds))
	seen := make(map[string]bool, len(root.Kinds))
	for _, parsed := range root.Kinds {
		content, contentDiags := parsed.Body.Content(kindBodySchema)
		allDiags = append(allDiags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}
		if seen[parsed.Name] {
			allDiags = append(allDiags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate kind definition",
				Detail:   fmt.Sprintf("A kind named '%s' has already been defined in this file.", parsed.Name),
				Subject:  parsed.Body.MissingItemRange().Ptr(),
			})
			continue
		}
		seen[parsed.Name] = true

		kind, kindDiags := decodeKind(parsed.Name, content)
		allDiags = append(allDiags, kindDiags...)
		if kindDiags.HasErrors() {
			continue
		}
		kind.FSInformation = &FSInfo{FilePath: filePath}
		kinds = append(kinds, kind)
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}
	logger.Debug("Successfully parsed kind definitions.", "count", len(kinds))
	return kinds, allDiags
}

func decodeKind(name string, content *hcl.BodyContent) (*Kind, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	kind := &Kind{Name: name, Arity: ArityAllRequired, AliasOutputs: true}

	decodeString := func(attrName string, target *string) {
		if attr, ok := content.Attributes[attrName]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, target)...)
		}
	}
	decodeString("category", &kind.Category)
	decodeString("description", &kind.Description)
	decodeString("family", &kind.Family)
	decodeString("binds", &kind.Binds)

	var role, arity string
	decodeString("role", &role)
	decodeString("arity", &arity)
	if attr := content.Attributes["role"]; attr != nil && !knownRoles[Role(role)] {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown role",
			Detail:   fmt.Sprintf("Kind '%s' declares role '%s', which is not a known role.", name, role),
			Subject:  attr.Expr.Range().Ptr(),
		})
	}
	kind.Role = Role(role)
	if arity != "" {
		kind.Arity = Arity(arity)
		switch kind.Arity {
		case ArityAllRequired, ArityAtLeastOne, ArityAllOptional:
		default:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown arity policy",
				Detail:   fmt.Sprintf("Kind '%s' declares arity '%s'. Use all_required, at_least_one or all_optional.", name, arity),
				Subject:  content.Attributes["arity"].Expr.Range().Ptr(),
			})
		}
	}

	if attr, ok := content.Attributes["edge_sides"]; ok {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &kind.EdgeSides)...)
	}
	if attr, ok := content.Attributes["alias_outputs"]; ok {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &kind.AliasOutputs)...)
	}

	var portDiags hcl.Diagnostics
	kind.Inputs, portDiags = parsePorts(content.Blocks, "input")
	diags = append(diags, portDiags...)
	variadic, family, varDiags := parseVariadic(content.Blocks)
	diags = append(diags, varDiags...)
	kind.Inputs = append(kind.Inputs, variadic...)
	if kind.Family == "" {
		kind.Family = family
	}
	kind.Outputs, portDiags = parsePorts(content.Blocks, "output")
	diags = append(diags, portDiags...)

	var paramDiags hcl.Diagnostics
	kind.Params, paramDiags = parseParams(content.Blocks)
	diags = append(diags, paramDiags...)
	if diags.HasErrors() {
		return nil, diags
	}

	templateAttr := func(attrName string) *Template {
		attr, ok := content.Attributes[attrName]
		if !ok {
			return nil
		}
		t, tDiags := decodeTemplate(kind, attr.Expr)
		diags = append(diags, tDiags...)
		return t
	}
	kind.Template = templateAttr("template")
	kind.InstantTemplate = templateAttr("instant_template")
	kind.AssemblyTemplate = templateAttr("assembly_template")
	kind.AfterPlay = templateAttr("after_play")

	var variantDiags hcl.Diagnostics
	kind.Variants, variantDiags = parseVariants(kind, content.Blocks)
	diags = append(diags, variantDiags...)

	diags = append(diags, checkKind(kind, content)...)
	return kind, diags
}

// checkKind enforces the cross-field rules of a kind declaration.
func checkKind(kind *Kind, content *hcl.BodyContent) hcl.Diagnostics {
	var diags hcl.Diagnostics
	subject := content.MissingItemRange.Ptr()
	fail := func(summary, detail string) {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  summary,
			Detail:   detail,
			Subject:  subject,
		})
	}

	switch kind.Role {
	case RoleShape, RoleAnimation, RoleShow, RoleValue, RoleCamera:
		if kind.Template == nil && len(kind.Variants) == 0 {
			fail("Missing template", fmt.Sprintf("Kind '%s' with role '%s' must declare a template.", kind.Name, kind.Role))
		}
	}
	if kind.Role == RoleConstant && kind.Binds == "" {
		fail("Missing 'binds' attribute", fmt.Sprintf("Constant kind '%s' must name the scene constant it binds to.", kind.Name))
	}
	if kind.Arity == ArityAtLeastOne && len(kind.FamilyHandles()) == 0 {
		fail("Missing handle family", fmt.Sprintf("Kind '%s' uses arity 'at_least_one' but declares no numbered '%s' inputs.", kind.Name, kind.Family))
	}
	if kind.EdgeSides > 0 {
		for i := 1; i <= kind.EdgeSides; i++ {
			if _, ok := kind.Output("side_" + strconv.Itoa(i)); !ok {
				fail("Missing side output", fmt.Sprintf("Kind '%s' declares %d edge sides but has no 'side_%d' output.", kind.Name, kind.EdgeSides, i))
			}
		}
		if _, ok := kind.Output("edges"); !ok {
			fail("Missing edges output", fmt.Sprintf("Kind '%s' declares edge sides but has no 'edges' output.", kind.Name))
		}
	}
	return diags
}

// parsePorts decodes all blocks of the given type ("input" or "output").
func parsePorts(blocks hcl.Blocks, blockType string) ([]Port, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var ports []Port
	seen := make(map[string]bool)

	for _, block := range blocks.OfType(blockType) {
		name := block.Labels[0]
		if seen[name] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  fmt.Sprintf("Duplicate %s definition", blockType),
				Detail:   fmt.Sprintf("An %s named '%s' has already been defined.", blockType, name),
				Subject:  &block.DefRange,
			})
			continue
		}
		seen[name] = true

		content, contentDiags := block.Body.Content(portBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}

		portType, typeDiags := decodePortType(block, content)
		diags = append(diags, typeDiags...)
		if typeDiags.HasErrors() {
			continue
		}

		port := Port{Name: name, Type: portType}
		if attr, ok := content.Attributes["optional"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &port.Optional)...)
		}
		if attr, ok := content.Attributes["description"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &port.Description)...)
		}
		ports = append(ports, port)
	}
	return ports, diags
}

// parseVariadic expands `variadic "anim" { count = 3 }` into the optional
// inputs anim1..anim3. It returns the family name of the last block.
func parseVariadic(blocks hcl.Blocks) ([]Port, string, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var ports []Port
	family := ""

	for _, block := range blocks.OfType("variadic") {
		content, contentDiags := block.Body.Content(variadicBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}
		portType, typeDiags := decodePortType(block, content)
		diags = append(diags, typeDiags...)

		var count int
		diags = append(diags, gohcl.DecodeExpression(content.Attributes["count"].Expr, nil, &count)...)
		if count < 1 {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid variadic count",
				Detail:   "The 'count' attribute of a variadic block must be at least 1.",
				Subject:  content.Attributes["count"].Expr.Range().Ptr(),
			})
		}
		if diags.HasErrors() {
			continue
		}

		family = block.Labels[0]
		for i := 1; i <= count; i++ {
			ports = append(ports, Port{Name: family + strconv.Itoa(i), Type: portType, Optional: true})
		}
	}
	return ports, family, diags
}

func decodePortType(block *hcl.Block, content *hcl.BodyContent) (PortType, hcl.Diagnostics) {
	typeAttr, exists := content.Attributes["type"]
	if !exists {
		missing := block.Body.MissingItemRange()
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing 'type' attribute",
			Detail:   fmt.Sprintf("The 'type' attribute is required for all %s blocks.", block.Type),
			Subject:  &missing,
		}}
	}
	keyword, diags := hclutil.Keyword(typeAttr.Expr)
	if diags.HasErrors() {
		return "", diags
	}
	if !knownPortTypes[PortType(keyword)] {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown port type",
			Detail:   fmt.Sprintf("The keyword '%s' is not a known port type.", keyword),
			Subject:  typeAttr.Expr.Range().Ptr(),
		}}
	}
	return PortType(keyword), nil
}

// parseParams decodes all 'param' blocks of a kind.
func parseParams(blocks hcl.Blocks) ([]*Param, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var params []*Param
	seen := make(map[string]bool)

	for _, block := range blocks.OfType("param") {
		name := block.Labels[0]
		if seen[name] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate param definition",
				Detail:   fmt.Sprintf("A param named '%s' has already been defined.", name),
				Subject:  &block.DefRange,
			})
			continue
		}
		seen[name] = true

		content, contentDiags := block.Body.Content(paramBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}

		typeAttr, exists := content.Attributes["type"]
		if !exists {
			missing := block.Body.MissingItemRange()
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Missing 'type' attribute",
				Detail:   "The 'type' attribute is required for all param blocks.",
				Subject:  &missing,
			})
			continue
		}
		ctyType, typeDiags := hclutil.CtyType(typeAttr.Expr)
		diags = append(diags, typeDiags...)
		if typeDiags.HasErrors() {
			continue
		}

		param := &Param{Name: name, Type: ctyType}
		if attr, ok := content.Attributes["description"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &param.Description)...)
		}

		if attr, ok := content.Attributes["default"]; ok {
			// A nil eval context is used because defaults must be literal values.
			val, valDiags := attr.Expr.Value(nil)
			diags = append(diags, valDiags...)
			if valDiags.HasErrors() {
				continue
			}
			if !val.Type().Equals(ctyType) {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid default value type",
					Detail:   fmt.Sprintf("The default value for param '%s' is a %s, but its declared type is %s.", name, val.Type().FriendlyName(), ctyType.FriendlyName()),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
			text, err := hclutil.LiteralText(val)
			if err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid default value",
					Detail:   err.Error(),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
			param.Default = &text
		}

		bounds := []struct {
			name   string
			target **float64
		}{{"min", &param.Min}, {"max", &param.Max}}
		for _, b := range bounds {
			attrName, target := b.name, b.target
			attr, ok := content.Attributes[attrName]
			if !ok {
				continue
			}
			if ctyType != cty.Number {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid constraint",
					Detail:   fmt.Sprintf("The '%s' constraint only applies to number params.", attrName),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
			var bound float64
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &bound)...)
			*target = &bound
		}
		if attr, ok := content.Attributes["one_of"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &param.OneOf)...)
		}
		params = append(params, param)
	}
	return params, diags
}

// parseVariants decodes the 'variant' blocks. Variants must reference a
// declared param.
func parseVariants(kind *Kind, blocks hcl.Blocks) ([]Variant, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	var variants []Variant

	for _, block := range blocks.OfType("variant") {
		content, contentDiags := block.Body.Content(variantBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}
		v := Variant{Value: block.Labels[0]}
		diags = append(diags, gohcl.DecodeExpression(content.Attributes["param"].Expr, nil, &v.Param)...)
		if _, ok := kind.Param(v.Param); !ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown variant param",
				Detail:   fmt.Sprintf("Variant '%s' selects on param '%s', which kind '%s' does not declare.", v.Value, v.Param, kind.Name),
				Subject:  &block.DefRange,
			})
			continue
		}
		t, tDiags := decodeTemplate(kind, content.Attributes["template"].Expr)
		diags = append(diags, tDiags...)
		if tDiags.HasErrors() {
			continue
		}
		v.Template = t
		variants = append(variants, v)
	}
	return variants, diags
}

// decodeTemplate parses a template attribute and checks its in/field
// references against the kind's declarations.
func decodeTemplate(kind *Kind, expr hcl.Expression) (*Template, hcl.Diagnostics) {
	var src string
	diags := gohcl.DecodeExpression(expr, nil, &src)
	if diags.HasErrors() {
		return nil, diags
	}
	fail := func(detail string) hcl.Diagnostics {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid template",
			Detail:   detail,
			Subject:  expr.Range().Ptr(),
		}}
	}

	t, err := ParseTemplate(src)
	if err != nil {
		return nil, fail(err.Error())
	}
	for _, name := range t.Names(SegInput) {
		if _, ok := kind.Input(name); !ok {
			return nil, fail(fmt.Sprintf("Template of kind '%s' references undeclared input '%s'.", kind.Name, name))
		}
	}
	for _, name := range t.Names(SegField) {
		if _, ok := kind.Param(name); !ok {
			return nil, fail(fmt.Sprintf("Template of kind '%s' references undeclared param '%s'.", kind.Name, name))
		}
	}
	return t, nil
}
