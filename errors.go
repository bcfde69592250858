package chainmap

import "errors"

var (
	// ErrHash is reported when a custom hasher panics while computing a key's
	// hash. Non-throwing call sites collapse it to a miss/failed result; the
	// error-channel forms return it wrapped with the panic detail.
	ErrHash = errors.New("chainmap: key hash failed")

	// ErrAllocation is reported when a rehash aborts mid-replay for a reason
	// other than a hasher failure. The table is rolled back to its pre-resize
	// state before the error is returned.
	ErrAllocation = errors.New("chainmap: rehash aborted")

	// ErrNotFound is the panic cause of MustGet when no entry exists for the
	// key. Every other read path reports absence as ok == false, never as an
	// error.
	ErrNotFound = errors.New("chainmap: key not found")
)
