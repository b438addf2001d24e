package fonts

import "errors"

// Error kinds surfaced by font operations. Callers match with errors.Is.
var (
	// ErrGraphAccess marks a failed object-graph access: a corrupt document
	// or a font dictionary missing a key the operation requires. It aborts
	// the whole enclosing operation.
	ErrGraphAccess = errors.New("font object graph access failed")

	// ErrMalformedWidthArray marks a width array element that is neither a
	// number nor a nested array.
	ErrMalformedWidthArray = errors.New("malformed width array")

	// ErrInconsistentMergeInput marks a merge width update that supplies
	// font program bytes for a font with no resolvable descriptor stream.
	ErrInconsistentMergeInput = errors.New("merge update supplies program bytes for font without embedded stream")
)
