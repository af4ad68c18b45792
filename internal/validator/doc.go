// Package validator checks a graph against the node catalog before code
// generation and schedules it.
//
// Validate collects every structural and type problem it can find rather
// than stopping at the first one. ExecutionOrder returns a dependency order
// in which ready nodes are ranked by their `order` field.
package validator
