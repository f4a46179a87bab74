// Package errs defines the typed error taxonomy shared by every layer of the
// graph core: datablock, matrix, delta, store, algebra and persistence all
// return (or wrap) one of these sentinels so callers can use errors.Is
// instead of string matching.
package errs

import "errors"

// Sentinel errors for the core's error kinds.
var (
	// ErrInvalidArgument covers bad ids, dimension mismatches, type
	// mismatches in attribute values, and out-of-bounds indices.
	ErrInvalidArgument = errors.New("matrixgraph: invalid argument")

	// ErrNotFound covers an id not present, or zombified.
	ErrNotFound = errors.New("matrixgraph: not found")

	// ErrDomainMismatch covers an algebraic expression built from operands
	// whose src/dest domains don't line up for the requested operation.
	ErrDomainMismatch = errors.New("matrixgraph: domain mismatch")

	// ErrOutOfMemory covers any matrix or datablock allocation failure.
	ErrOutOfMemory = errors.New("matrixgraph: out of memory")

	// ErrIntegerOverflow covers a size computation overflowing 64 bits.
	ErrIntegerOverflow = errors.New("matrixgraph: integer overflow")

	// ErrCancelled covers a caller-provided cancellation token firing.
	ErrCancelled = errors.New("matrixgraph: cancelled")

	// ErrPoisoned marks a DeltaMatrix that failed to flush under
	// ErrOutOfMemory; it fails fast until dropped or retried.
	ErrPoisoned = errors.New("matrixgraph: matrix poisoned by failed flush")
)
