package wang

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema is matched by every *SchemaError via errors.Is.
	ErrSchema = errors.New("wang: schema error")

	// ErrEmptyCandidateSet is returned by Choose when called with nothing to pick from.
	// Callers must check Match output first; seeing this is a programming error.
	ErrEmptyCandidateSet = errors.New("wang: empty candidate set")
)

// SchemaError reports malformed tileset or grid input. It is always fatal to
// whatever was being built.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return "wang: schema: " + e.Reason }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func schemaErrorf(format string, args ...any) error {
	return &SchemaError{Reason: fmt.Sprintf(format, args...)}
}
