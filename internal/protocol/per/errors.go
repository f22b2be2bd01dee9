package per

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated     = errors.New("per: truncated data")
	ErrOutOfRange    = errors.New("per: value outside constraint")
	ErrInvalidBounds = errors.New("per: invalid constraint bounds")
	ErrFragmented    = errors.New("per: fragmented length not supported")
	ErrTrailingData  = errors.New("per: trailing data after value")
	ErrTooManyBits   = errors.New("per: bit count exceeds 64")
)

// ConstraintError reports a value that fell outside its declared range.
type ConstraintError struct {
	What  string
	Value uint64
	Min   uint64
	Max   uint64
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("per: %s %d outside [%d,%d]", e.What, e.Value, e.Min, e.Max)
}

func (e ConstraintError) Unwrap() error {
	return ErrOutOfRange
}
