package hclutil

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// LiteralText renders a cty value as the literal text the code generator
// splices into statements. Strings pass through untouched, numbers keep
// their shortest exact form, and sequences become bracketed lists
// (`[0, 1, 0]`). Null renders as the empty string.
func LiteralText(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsKnown() {
		return "", fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		return v.AsBigFloat().Text('f', -1), nil
	case ty == cty.Bool:
		if v.True() {
			return "true", nil
		}
		return "false", nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		parts := make([]string, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			s, err := LiteralText(elem)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	default:
		return "", fmt.Errorf("values of type %s cannot be used as literal text", ty.FriendlyName())
	}
}
