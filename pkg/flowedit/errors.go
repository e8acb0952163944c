package flowedit

import (
	"errors"
	"fmt"
)

// Sentinel errors for structural problems in graph input.
var (
	// ErrUnknownNodeType indicates a node type outside the fixed palette.
	ErrUnknownNodeType = errors.New("unknown node type")
)

func errUnknownType(t NodeType) error {
	return fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
}

// ValidationError indicates user input that was rejected before any state
// changed: a malformed import file, a save attempt on an empty flow, an
// unsupported upload. The prior state is always left untouched.
type ValidationError struct {
	// Field names what was invalid, when a single field is at fault.
	Field string
	// Message is the human-readable explanation shown to the user.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
