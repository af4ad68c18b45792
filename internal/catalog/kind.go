// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Kind, the format-agnostic representation of one kind
// manifest, together with the classification helpers the validator and the
// code generator query.
package catalog

import (
	"strconv"
	"strings"
)

// Role classifies how the code generator treats a kind.
type Role string

const (
	RoleShape     Role = "shape"     // creates a mobject
	RoleAnimation Role = "animation" // generic lowering, usually an animation producer
	RoleShow      Role = "show"      // adds its mobject to the scene without animating
	RoleSequence  Role = "sequence"  // plays its slots in order
	RoleParallel  Role = "parallel"  // plays its slots together
	RoleAssembly  Role = "assembly"  // groups objects into one composite
	RoleCamera    Role = "camera"    // emits a direct camera command
	RoleJunction  Role = "junction"  // pass-through, emits nothing
	RoleConstant  Role = "constant"  // binds to a shared scene constant, emits nothing
	RoleValue     Role = "value"     // math and data values
	RoleFrame     Role = "frame"     // display-only, always skipped
)

var knownRoles = map[Role]bool{
	RoleShape: true, RoleAnimation: true, RoleShow: true, RoleSequence: true,
	RoleParallel: true, RoleAssembly: true, RoleCamera: true, RoleJunction: true,
	RoleConstant: true, RoleValue: true, RoleFrame: true,
}

// Arity is the policy deciding which inputs must be connected.
type Arity string

const (
	// ArityAllRequired requires every non-optional, non-parameter input.
	ArityAllRequired Arity = "all_required"
	// ArityAtLeastOne requires at least one handle of the kind's family.
	ArityAtLeastOne Arity = "at_least_one"
	// ArityAllOptional requires nothing; unconnected inputs fall back to literals.
	ArityAllOptional Arity = "all_optional"
)

// ParamPrefix marks inputs that fall back to the node's own field when unconnected.
const ParamPrefix = "param_"

// Port is one declared, typed connection point.
type Port struct {
	Name        string
	Type        PortType
	Optional    bool
	Description string
}

// IsParam reports whether the port belongs to the parameter family.
func (p Port) IsParam() bool { return strings.HasPrefix(p.Name, ParamPrefix) }

// Field returns the node field a parameter port falls back to.
func (p Port) Field() string { return strings.TrimPrefix(p.Name, ParamPrefix) }

// Variant is an alternative template selected when a parameter has a given value.
type Variant struct {
	Value    string
	Param    string
	Template *Template
}

// Kind is the capability record of one node kind.
type Kind struct {
	Name        string
	Category    string
	Description string
	Role        Role
	Arity       Arity
	Family      string // numbered handle prefix collected by composites
	Binds       string // scene constant a constant kind binds to

	Inputs  []Port
	Outputs []Port
	Params  []*Param

	Template         *Template
	InstantTemplate  *Template // used when the animate parameter is false
	AssemblyTemplate *Template // used when the mobject input is an assembly
	AfterPlay        *Template // emitted after every play of the node
	Variants         []Variant

	EdgeSides    int
	AliasOutputs bool

	FSInformation *FSInfo
}

// FSInfo records where a kind was declared.
type FSInfo struct {
	FilePath string
}

// Input returns the named input port.
func (k *Kind) Input(name string) (Port, bool) {
	for _, p := range k.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Output returns the named output port.
func (k *Kind) Output(name string) (Port, bool) {
	for _, p := range k.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Param returns the named parameter declaration.
func (k *Kind) Param(name string) (*Param, bool) {
	for _, p := range k.Params {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// InputHandle resolves an edge's target handle, mapping an omitted handle to
// the first declared input. It returns "" when the kind has no inputs.
func (k *Kind) InputHandle(handle string) string {
	if handle == "" || handle == "default" {
		if len(k.Inputs) == 0 {
			return ""
		}
		return k.Inputs[0].Name
	}
	return handle
}

// OutputHandle resolves an edge's source handle the same way.
func (k *Kind) OutputHandle(handle string) string {
	if handle == "" || handle == "default" {
		if len(k.Outputs) == 0 {
			return ""
		}
		return k.Outputs[0].Name
	}
	return handle
}

// FamilyHandles returns the kind's numbered family inputs in declared order.
func (k *Kind) FamilyHandles() []string {
	if k.Family == "" {
		return nil
	}
	var handles []string
	for _, p := range k.Inputs {
		if IsFamilyHandle(k.Family, p.Name) {
			handles = append(handles, p.Name)
		}
	}
	return handles
}

// IsFamilyHandle reports whether handle is family followed by a number.
func IsFamilyHandle(family, handle string) bool {
	suffix, ok := strings.CutPrefix(handle, family)
	if !ok || suffix == "" {
		return false
	}
	_, err := strconv.Atoi(suffix)
	return err == nil
}

// IsAnimationProducer reports whether applying the kind mutates a mobject:
// it has an Animation output and a mobject or source input.
func (k *Kind) IsAnimationProducer() bool {
	hasAnimation := false
	for _, p := range k.Outputs {
		if p.Type == Animation {
			hasAnimation = true
			break
		}
	}
	if !hasAnimation {
		return false
	}
	_, hasMobject := k.Input("mobject")
	_, hasSource := k.Input("source")
	return hasMobject || hasSource
}

// IsPassThrough reports whether the kind emits no code of its own.
func (k *Kind) IsPassThrough() bool {
	return k.Role == RoleJunction || k.Role == RoleConstant || k.Role == RoleFrame
}

// SelectTemplate picks the lowering template for constructed params:
// a matching variant first, then the instant template when animate is
// false, then the main template.
func (k *Kind) SelectTemplate(params Params) *Template {
	for _, v := range k.Variants {
		if params.Get(v.Param) == v.Value {
			return v.Template
		}
	}
	if k.InstantTemplate != nil && !params.Bool("animate", true) {
		return k.InstantTemplate
	}
	return k.Template
}
