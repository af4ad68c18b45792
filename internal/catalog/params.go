// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines a kind's parameter declarations and Construct, which
// turns a node's raw data into checked, defaulted parameter text.
//
// Parameter values stay literal text all the way into the generated program.
// The declared cty type is only used to check a value converts cleanly, so
// `run_time = "1.0"` keeps its spelling while `order = "abc"` is rejected.
package catalog

import (
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Param is one declared parameter of a kind.
type Param struct {
	Name        string
	Type        cty.Type
	Description string

	// Default is the literal text used when the node does not set the
	// parameter. A nil Default makes the parameter required.
	Default *string

	Min   *float64
	Max   *float64
	OneOf []string
}

// Params is the constructed parameter set of one node. Keys the kind does
// not declare are carried through unchecked for the legacy field shims.
type Params map[string]string

// Get returns the parameter text, or "" when unset.
func (p Params) Get(name string) string { return p[name] }

// Has reports whether the parameter is set to a non-empty value.
func (p Params) Has(name string) bool { return p[name] != "" }

// Bool interprets the parameter as a boolean, returning fallback when unset
// or unparsable.
func (p Params) Bool(name string, fallback bool) bool {
	v, ok := p[name]
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

// ParamError lists every problem found while constructing a node's params.
type ParamError struct {
	Problems []string
}

func (e *ParamError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Construct validates data against the kind's parameter declarations and
// returns the defaulted parameter set. A failure is always a *ParamError.
func (k *Kind) Construct(data map[string]string) (Params, error) {
	params := make(Params, len(data)+len(k.Params))
	for key, value := range data {
		params[key] = value
	}

	var problems []string
	for _, p := range k.Params {
		raw, supplied := data[p.Name]
		if !supplied {
			if p.Default == nil {
				problems = append(problems, fmt.Sprintf("parameter '%s' is required", p.Name))
				continue
			}
			params[p.Name] = *p.Default
			continue
		}

		text, err := p.check(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("parameter '%s': %v", p.Name, err))
			continue
		}
		params[p.Name] = text
	}

	if len(problems) > 0 {
		return nil, &ParamError{Problems: problems}
	}
	return params, nil
}

// check converts raw to the declared type and enforces the constraints. It
// returns the text to store: bools are normalized, everything else keeps the
// caller's spelling.
func (p *Param) check(raw string) (string, error) {
	text := raw
	if p.Type == cty.Bool || p.Type == cty.Number {
		text = strings.TrimSpace(raw)
	}
	if p.Type == cty.Bool {
		text = strings.ToLower(text)
	}

	val, err := convert.Convert(cty.StringVal(text), p.Type)
	if err != nil {
		return "", fmt.Errorf("cannot use %q as %s", raw, p.Type.FriendlyName())
	}

	if p.Type == cty.Bool {
		text = strconv.FormatBool(val.True())
	}

	if p.Type == cty.Number && (p.Min != nil || p.Max != nil) {
		n := val.AsBigFloat()
		if p.Min != nil && n.Cmp(big.NewFloat(*p.Min)) < 0 {
			return "", fmt.Errorf("value %s is below the minimum %s", text, formatFloat(*p.Min))
		}
		if p.Max != nil && n.Cmp(big.NewFloat(*p.Max)) > 0 {
			return "", fmt.Errorf("value %s is above the maximum %s", text, formatFloat(*p.Max))
		}
	}

	if len(p.OneOf) > 0 && !slices.Contains(p.OneOf, text) {
		return "", fmt.Errorf("value %q is not one of [%s]", text, strings.Join(p.OneOf, ", "))
	}
	return text, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
