package relation

import (
	"errors"
	"fmt"
)

var (
	// ErrFinalized is returned when a relation is changed after finalize
	ErrFinalized = errors.New("relation is finalized")

	// ErrMethodNotFound is returned when calling a method the relation does not have
	ErrMethodNotFound = errors.New("method not found")

	// ErrDuplicateMethod is returned when a method name is defined twice
	ErrDuplicateMethod = errors.New("method already defined")
)

// FinalizeOrderError is returned when a relation refers to a relation that
// is not in the registry at finalize time
type FinalizeOrderError struct {
	Relation string
	Missing  string
}

// Error implements the error interface
func (e *FinalizeOrderError) Error() string {
	return fmt.Sprintf("relation %s references unknown relation %s", e.Relation, e.Missing)
}

// CustomizationError collects the problems found while applying a
// customization block
type CustomizationError struct {
	Relation string
	Errs     []error
}

// Error implements the error interface
func (e *CustomizationError) Error() string {
	return fmt.Sprintf("relation %s: %v", e.Relation, errors.Join(e.Errs...))
}

// Unwrap exposes the individual errors to errors.Is and errors.As
func (e *CustomizationError) Unwrap() []error {
	return e.Errs
}
