// Package graph defines the node/edge scene graph the compiler consumes and
// the loaders that read it from JSON, YAML and HCL documents.
//
// A Graph is a plain snapshot: the compiler never mutates it, and callers
// must not mutate it while a compile is in flight.
package graph
