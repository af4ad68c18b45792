// Package hclutil holds small helpers shared by the HCL-backed loaders:
// decoding bare type keywords, rendering cty values as literal text, and
// block lookups.
package hclutil

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Keyword returns the bare identifier an expression consists of, e.g. the
// `Mobject` in `type = Mobject`. Anything more complex is an error.
func Keyword(expr hcl.Expression) (string, hcl.Diagnostics) {
	// We expect a simple identifier like `string`, not a complex expression.
	// AbsTraversalForExpr is the right tool to validate this structure.
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() || len(traversal) != 1 || traversal.RootName() == "" {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid type specification",
			Detail:   "The 'type' attribute must be a simple type keyword, not a quoted string or a complex expression.",
			Subject:  expr.Range().Ptr(),
		}}
	}
	return traversal.RootName(), nil
}

// CtyType converts a type keyword expression (`string`, `number`, `bool`)
// into its cty.Type. Parameters are scalar, so complex types are rejected.
func CtyType(expr hcl.Expression) (cty.Type, hcl.Diagnostics) {
	typeName, diags := Keyword(expr)
	if diags.HasErrors() {
		return cty.NilType, diags
	}

	switch typeName {
	case "string":
		return cty.String, nil
	case "number":
		return cty.Number, nil
	case "bool":
		return cty.Bool, nil
	case "any", "list", "map", "set", "object", "tuple":
		return cty.NilType, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported parameter type",
			Detail:   fmt.Sprintf("The type '%s' is not supported for parameters. Parameters are literal text; use string.", typeName),
			Subject:  expr.Range().Ptr(),
		}}
	default:
		return cty.NilType, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported type",
			Detail:   fmt.Sprintf("The keyword '%s' is not a valid type. Supported types are: string, number, bool.", typeName),
			Subject:  expr.Range().Ptr(),
		}}
	}
}

// FindUniqueBlock searches a slice of blocks for all blocks of a given name.
// It returns a diagnostic error if more than one block of that name is found.
// If no block is found, it returns nil.
func FindUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics

	for _, block := range blocks {
		if block.Type == name {
			if found != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Duplicate \"" + name + "\" block",
					Detail:   "Only one \"" + name + "\" block is allowed.",
					Subject:  &block.DefRange,
				})
			}
			found = block
		}
	}

	return found, diags
}
