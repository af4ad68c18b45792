// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines port type tags and the compatibility lattice edges are
// checked against.
package catalog

// PortType is the type tag of a port.
type PortType string

const (
	Mobject   PortType = "Mobject"
	Animation PortType = "Animation"
	Number    PortType = "Number"
	Vec3      PortType = "Vec3"
	Matrix    PortType = "Matrix"
	Color     PortType = "Color"
	Camera    PortType = "Camera"
	Any       PortType = "Any"

	// Narrow visual tags, accepted wherever a Mobject is expected.
	Shape  PortType = "shape"
	Text   PortType = "text"
	Axes   PortType = "axes"
	Plane  PortType = "plane"
	Tex    PortType = "tex"
	Vector PortType = "vector"
	Dot    PortType = "dot"
	Arrow  PortType = "arrow"
)

var knownPortTypes = map[PortType]bool{
	Mobject: true, Animation: true, Number: true, Vec3: true, Matrix: true,
	Color: true, Camera: true, Any: true,
	Shape: true, Text: true, Axes: true, Plane: true, Tex: true, Vector: true,
	Dot: true, Arrow: true,
}

// broadAccepts lists, per broad target type, the source types it accepts
// besides itself. Pairs not listed here are incompatible, Any included.
var broadAccepts = map[PortType][]PortType{
	Mobject:   {Mobject, Shape, Text, Axes, Plane, Tex, Vector, Dot, Arrow},
	Animation: {Animation},
}

// Compatible reports whether a source port of type src may feed a target
// port of type tgt.
func Compatible(src, tgt PortType) bool {
	if src == tgt {
		return true
	}
	for _, sub := range broadAccepts[tgt] {
		if sub == src {
			return true
		}
	}
	return false
}
