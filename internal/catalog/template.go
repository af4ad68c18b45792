// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Template, the typed lowering template. A template is a
// sequence of literal text and named placeholders. Placeholders are resolved
// in two phases by the code generator, so a template value carries which
// placeholders remain; Resolved refuses to produce text while any do.
package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// SegmentKind identifies what a template segment stands for.
type SegmentKind int

const (
	SegLiteral SegmentKind = iota
	SegVar                 // {{var}}: the node's own variable
	SegMobject             // {{mob}}: the mobject the node's animation targets
	SegInput               // {{in.h}}: the value bound to input h
	SegField               // {{field.p}}: the node's own parameter p
	SegDerived             // {{derived.name}}: a registered derived hook
)

func (k SegmentKind) String() string {
	switch k {
	case SegLiteral:
		return "literal"
	case SegVar:
		return "var"
	case SegMobject:
		return "mob"
	case SegInput:
		return "in"
	case SegField:
		return "field"
	case SegDerived:
		return "derived"
	}
	return "unknown"
}

// Segment is one piece of a template.
type Segment struct {
	Kind SegmentKind
	Name string // input, field or hook name; empty for var and mob
	Text string // literal text; only for SegLiteral
}

// Token renders the segment back to its source form.
func (s Segment) Token() string {
	switch s.Kind {
	case SegLiteral:
		return s.Text
	case SegVar, SegMobject:
		return "{{" + s.Kind.String() + "}}"
	default:
		return "{{" + s.Kind.String() + "." + s.Name + "}}"
	}
}

// Template is a parsed lowering template.
type Template struct {
	Source   string
	Segments []Segment
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-z]+)(?:\.([A-Za-z0-9_]+))?\s*\}\}`)

// ParseTemplate splits src into literal and placeholder segments.
func ParseTemplate(src string) (*Template, error) {
	t := &Template{Source: src}
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > last {
			t.Segments = append(t.Segments, Segment{Kind: SegLiteral, Text: src[last:m[0]]})
		}
		head := src[m[2]:m[3]]
		name := ""
		if m[4] >= 0 {
			name = src[m[4]:m[5]]
		}
		seg, err := placeholder(head, name)
		if err != nil {
			return nil, fmt.Errorf("template placeholder %q: %w", src[m[0]:m[1]], err)
		}
		t.Segments = append(t.Segments, seg)
		last = m[1]
	}
	if last < len(src) {
		t.Segments = append(t.Segments, Segment{Kind: SegLiteral, Text: src[last:]})
	}
	if rest := strings.Index(t.literalText(), "{{"); rest >= 0 {
		return nil, fmt.Errorf("malformed placeholder in template %q", src)
	}
	return t, nil
}

func placeholder(head, name string) (Segment, error) {
	switch head {
	case "var", "mob":
		if name != "" {
			return Segment{}, fmt.Errorf("'%s' takes no name", head)
		}
		if head == "var" {
			return Segment{Kind: SegVar}, nil
		}
		return Segment{Kind: SegMobject}, nil
	case "in", "field", "derived":
		if name == "" {
			return Segment{}, fmt.Errorf("'%s' requires a name", head)
		}
		kind := map[string]SegmentKind{"in": SegInput, "field": SegField, "derived": SegDerived}[head]
		return Segment{Kind: kind, Name: name}, nil
	}
	return Segment{}, fmt.Errorf("unknown placeholder kind '%s'", head)
}

func (t *Template) literalText() string {
	var b strings.Builder
	for _, s := range t.Segments {
		if s.Kind == SegLiteral {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// Names returns the distinct names referenced by placeholders of a kind, in
// first-use order.
func (t *Template) Names(kind SegmentKind) []string {
	seen := map[string]bool{}
	var names []string
	for _, s := range t.Segments {
		if s.Kind == kind && !seen[s.Name] {
			seen[s.Name] = true
			names = append(names, s.Name)
		}
	}
	return names
}

// Has reports whether any placeholder of the kind remains.
func (t *Template) Has(kind SegmentKind) bool {
	for _, s := range t.Segments {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// Substitute returns a copy of t in which every placeholder for which fn
// reports ok is replaced by the returned text. Placeholders fn declines stay
// in place for a later phase. The receiver is not modified.
func (t *Template) Substitute(fn func(Segment) (string, bool, error)) (*Template, error) {
	out := &Template{Source: t.Source, Segments: make([]Segment, 0, len(t.Segments))}
	for _, s := range t.Segments {
		if s.Kind == SegLiteral {
			out.appendLiteral(s.Text)
			continue
		}
		text, ok, err := fn(s)
		if err != nil {
			return nil, err
		}
		if ok {
			out.appendLiteral(text)
		} else {
			out.Segments = append(out.Segments, s)
		}
	}
	return out, nil
}

func (t *Template) appendLiteral(text string) {
	if n := len(t.Segments); n > 0 && t.Segments[n-1].Kind == SegLiteral {
		t.Segments[n-1].Text += text
		return
	}
	t.Segments = append(t.Segments, Segment{Kind: SegLiteral, Text: text})
}

// Resolved returns the final text, or an error naming every placeholder
// still unresolved.
func (t *Template) Resolved() (string, error) {
	var b strings.Builder
	var pending []string
	for _, s := range t.Segments {
		if s.Kind != SegLiteral {
			pending = append(pending, s.Token())
			continue
		}
		b.WriteString(s.Text)
	}
	if len(pending) > 0 {
		return "", fmt.Errorf("unresolved placeholders: %s", strings.Join(pending, ", "))
	}
	return b.String(), nil
}

// String renders the template in source form, with unresolved placeholders.
func (t *Template) String() string {
	var b strings.Builder
	for _, s := range t.Segments {
		b.WriteString(s.Token())
	}
	return b.String()
}
