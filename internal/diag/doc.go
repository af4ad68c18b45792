// Package diag defines the structured error kinds the compiler returns. Each
// kind unwraps to a sentinel so callers can branch with errors.Is, and each
// carries the id of the node it is attributed to when there is one.
package diag
