package content

import "errors"

// Content tree errors.
var (
	// ErrInvalid is returned when a tree fails validation.
	ErrInvalid = errors.New("invalid content tree")

	// ErrElementNotFound is returned when an operation targets an id
	// that is not in the tree.
	ErrElementNotFound = errors.New("element not found")

	// ErrBadPosition is returned when an insert or move targets an
	// index outside the destination's child range.
	ErrBadPosition = errors.New("position out of range")

	// ErrCycle is returned when a move would place an element inside
	// its own subtree.
	ErrCycle = errors.New("move would create a cycle")
)
