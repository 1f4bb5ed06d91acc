package sketchtree

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned by Leaf.Get when a leaf has neither a cached
	// sketch nor a storage key to read one from.
	ErrNoData = errors.New("sketchtree: leaf has no sketch")

	// ErrNoStorage is returned when a leaf must read or write its payload but
	// was created without a store.
	ErrNoStorage = errors.New("sketchtree: leaf has no storage")

	// ErrNilQuery is yielded by Search when the query sketch is nil.
	ErrNilQuery = errors.New("sketchtree: nil query")
)

// LeafError reports a failure on a specific leaf.
//
// The original underlying error can be accessed via errors.Unwrap.
type LeafError struct {
	Leaf  string
	Op    string
	cause error
}

func (e *LeafError) Error() string {
	return fmt.Sprintf("sketchtree: %s leaf %q: %v", e.Op, e.Leaf, e.cause)
}

func (e *LeafError) Unwrap() error { return e.cause }
