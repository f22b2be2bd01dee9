package schema

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFormat = errors.New("schema: unknown catalog format")
	ErrTypeCycle     = errors.New("schema: type reference cycle")
	ErrInvalidString = errors.New("schema: invalid printable string")
)

// ValidationError names the catalog location that failed to compile.
type ValidationError struct {
	Where  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("schema: %s", e.Reason)
	}
	return fmt.Sprintf("schema: %s: %s", e.Where, e.Reason)
}

func invalid(where, format string, args ...any) error {
	return ValidationError{Where: where, Reason: fmt.Sprintf(format, args...)}
}
