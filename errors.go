package relational

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSelector is returned when Step is invoked without a configured
	// selection strategy.
	ErrNoSelector = errors.New("no selector configured")

	// ErrInvalidNumAnnotate is returned when the annotation count is not
	// positive or exceeds the unlabelled pool size.
	ErrInvalidNumAnnotate = errors.New("num annotate must be positive and at most the unlabelled pool size")
)

// SelectionContractError indicates that a Selector violated the selection
// contract: wrong count, duplicates, or indices outside the unlabelled pool.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type SelectionContractError struct {
	Selector  string
	Requested int
	Returned  int
	Reason    string
	cause     error
}

func (e *SelectionContractError) Error() string {
	return fmt.Sprintf("selector %q violated the selection contract (requested %d, returned %d): %s",
		e.Selector, e.Requested, e.Returned, e.Reason)
}

func (e *SelectionContractError) Unwrap() error { return e.cause }
