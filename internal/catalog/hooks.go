// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file holds the built-in derived hooks: the pieces of lowering that
// depend on more than plain substitution, such as which inputs are wired or
// whether a parameter sits at its neutral value.
package catalog

import (
	"fmt"
	"slices"
	"strings"
)

// BuiltinHooks registers the derived hooks the embedded manifests use.
type BuiltinHooks struct{}

// Register implements Module.
func (BuiltinHooks) Register(c *Catalog) {
	c.RegisterHook("about_point", aboutPoint)
	c.RegisterHook("matrix_linear", matrixLinear)
	c.RegisterHook("matrix_translation", matrixTranslation)
	c.RegisterHook("z_index", zIndex)
	c.RegisterHook("z_index_stmt", zIndexStmt)
	c.RegisterHook("shift", shift)
	c.RegisterHook("color", color)
	c.RegisterHook("inherited_color", inheritedColor)
	c.RegisterHook("quoted_text", quotedText)
	c.RegisterHook("raw_tex", rawTex)
	c.RegisterHook("vec3_values", vec3Values)
	c.RegisterHook("color_value", colorValue)
	c.RegisterHook("color_rgb", colorRGB)
	c.RegisterHook("camera_orientation", cameraOrientation)
	c.RegisterHook("compose_matrix", composeMatrix)
	c.RegisterHook("square_label", squareLabel)
}

// IsZero reports whether literal text spells a zero duration or ratio.
func IsZero(text string) bool {
	t := strings.TrimSpace(text)
	return t == "0" || t == "0.0"
}

// QuoteColor quotes hex colors and passes named colors through.
func QuoteColor(value string) string {
	if strings.HasPrefix(value, "#") {
		return `"` + value + `"`
	}
	return value
}

// EscapeQuotes escapes double quotes for a Python string literal.
func EscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func aboutPoint(h HookContext) (string, error) {
	if v, ok := h.Connected("param_about_point"); ok {
		return v, nil
	}
	mob := h.Mobject()
	pick := func(withMob, without string) string {
		if mob == "" {
			return without
		}
		return mob + withMob
	}
	switch h.Param("about_point") {
	case "", "self", "center":
		return pick(".get_center()", "ORIGIN"), nil
	case "min":
		return pick(".get_corner(DL)", "DL"), nil
	case "max":
		return pick(".get_corner(UR)", "UR"), nil
	case "origin":
		return "ORIGIN", nil
	}
	return "", fmt.Errorf("unknown about_point '%s'", h.Param("about_point"))
}

func matrixLinear(h HookContext) (string, error) {
	if m, ok := h.Connected("matrix"); ok {
		return m + "[:3, :3]", nil
	}
	return fmt.Sprintf("[[%s, %s], [%s, %s]]",
		h.Param("m11"), h.Param("m12"), h.Param("m21"), h.Param("m22")), nil
}

func matrixTranslation(h HookContext) (string, error) {
	if m, ok := h.Connected("matrix"); ok {
		return m + "[:3, 3]", nil
	}
	return fmt.Sprintf("[%s, %s, 0]", h.Param("m13"), h.Param("m23")), nil
}

func zIndex(h HookContext) (string, error) {
	z := strings.TrimSpace(h.Param("z_index"))
	if z == "" || z == "0" {
		return "", nil
	}
	return ".set_z_index(" + z + ")", nil
}

// zIndexStmt is the standalone-statement form; an empty result drops the line.
func zIndexStmt(h HookContext) (string, error) {
	chained, err := zIndex(h)
	if err != nil || chained == "" {
		return "", err
	}
	return h.Var() + chained, nil
}

func shift(h HookContext) (string, error) {
	s := strings.TrimSpace(h.Param("shift"))
	if s == "" || s == "[0, 0, 0]" {
		return "", nil
	}
	return ", shift=" + s, nil
}

func color(h HookContext) (string, error) {
	return QuoteColor(h.Param("color")), nil
}

// inheritedColor falls back to the target mobject's own color when the
// color param is empty.
func inheritedColor(h HookContext) (string, error) {
	if c := h.Param("color"); c != "" {
		return QuoteColor(c), nil
	}
	if h.Mobject() == "" {
		return "", fmt.Errorf("no color set and no mobject to inherit it from")
	}
	return h.Mobject() + ".get_color()", nil
}

func quotedText(h HookContext) (string, error) {
	return `"` + EscapeQuotes(h.Param("text")) + `"`, nil
}

func rawTex(h HookContext) (string, error) {
	return `r"` + EscapeQuotes(h.Param("tex")) + `"`, nil
}

func vec3Values(h HookContext) (string, error) {
	v := strings.TrimSpace(h.Param("values"))
	if strings.HasPrefix(v, "[") || strings.HasPrefix(v, "(") {
		return "list(" + v + ")", nil
	}
	return "[" + v + "]", nil
}

// colorValue is the Color kind's assignment. A wired RGB vector overrides the
// literal; components above 1 are treated as 0..255.
func colorValue(h HookContext) (string, error) {
	v := h.Var()
	if rgb, ok := h.Connected("param_rgb"); ok {
		return strings.Join([]string{
			"_rgb = " + rgb,
			"if any(v > 1.0 for v in _rgb): _rgb = [v/255.0 for v in _rgb]",
			v + " = rgb_to_color(np.array(_rgb))",
		}, "\n"), nil
	}
	return v + " = " + QuoteColor(h.Param("color_value")), nil
}

// colorRGB extracts the r/g/b components, only when any of them is wired.
func colorRGB(h HookContext) (string, error) {
	if !h.OutputUsed("r") && !h.OutputUsed("g") && !h.OutputUsed("b") {
		return "", nil
	}
	v := h.Var()
	return fmt.Sprintf("_c = color_to_rgb(%s)\n%s_r, %s_g, %s_b = _c[0], _c[1], _c[2]", v, v, v, v), nil
}

func cameraOrientation(h HookContext) (string, error) {
	angles := fmt.Sprintf("phi=np.radians(%s), theta=np.radians(%s), gamma=np.radians(%s)",
		h.Param("phi"), h.Param("theta"), h.Param("gamma"))
	if IsZero(h.Param("run_time")) {
		return "self.set_camera_orientation(" + angles + ")", nil
	}
	return fmt.Sprintf("self.move_camera(%s, run_time=%s)", angles, h.Param("run_time")), nil
}

// composeMatrix multiplies the wired matrices so that m1 is applied first,
// which puts it rightmost in the product.
func composeMatrix(h HookContext) (string, error) {
	connected := slices.Clone(h.ConnectedFamily("m"))
	slices.Reverse(connected)
	switch len(connected) {
	case 0:
		return "np.eye(4)", nil
	case 1:
		return connected[0] + ".copy()", nil
	}
	expr := fmt.Sprintf("np.matmul(%s, %s)", connected[0], connected[1])
	for _, m := range connected[2:] {
		expr = fmt.Sprintf("np.matmul(%s, %s)", expr, m)
	}
	return expr, nil
}

func squareLabel(h HookContext) (string, error) {
	v := h.Var()
	if label := h.Param("label"); label != "" {
		return fmt.Sprintf("%s_label = MathTex(r\"%s\", font_size=%s)\n%s_label.move_to(%s_square.get_center())",
			v, EscapeQuotes(label), h.Param("label_font_size"), v, v), nil
	}
	return fmt.Sprintf("%s_label = Dot(%s_square.get_center(), radius=0).set_opacity(0)", v, v), nil
}
