// Package codegen lowers a validated graph into the text of a Manim scene.
//
// Generate validates the graph, schedules it, and walks the schedule once.
// Every node is lowered through its kind's typed template in two phases:
// inputs, fields and the variable name first, then the mobject reference
// and derived hooks, which may depend on what phase one resolved. Sequences,
// parallel groups, assemblies and creation over an assembly are expanded by
// dedicated rules instead of the template path.
//
// All state of one run lives in a compilation value, so a Generator may be
// shared between goroutines compiling distinct graphs.
package codegen
