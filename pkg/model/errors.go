package model

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyData is returned when a model is trained on no points.
	ErrEmptyData = errors.New("model: empty training data")

	// ErrCorruptParams marks a serialized corrector that cannot be decoded.
	ErrCorruptParams = errors.New("model: corrupt parameter file")

	// ErrZeroKeyDelta is returned when two consecutive breakpoints share a key.
	// Segment never produces such breakpoints; seeing it is a logic error.
	ErrZeroKeyDelta = errors.New("model: consecutive breakpoints share a key")

	ErrInvalidPrefix    = errors.New("model: prefix bits out of range")
	ErrInvalidTableBits = errors.New("model: table bits out of range")

	// ErrPositionRange is returned when a position does not fit a hint table entry.
	ErrPositionRange = errors.New("model: position does not fit in uint32")
)

// ParamCountError indicates a corrector record count that is not 1 mod 3.
//
// It matches ErrCorruptParams via errors.Is.
type ParamCountError struct {
	Count int
}

func (e *ParamCountError) Error() string {
	return fmt.Sprintf("model: %d parameters cannot form a corrector ((n-1) %% 3 != 0)", e.Count)
}

func (e *ParamCountError) Unwrap() error { return ErrCorruptParams }
