package structs

import (
	"errors"
	"fmt"
)

var (
	// ErrNamespaceSealed is returned when a namespace does not accept new structs
	ErrNamespaceSealed = errors.New("namespace does not support struct definition")

	// ErrNilNamespace is returned when Compile is called without a namespace
	ErrNilNamespace = errors.New("namespace is nil")

	// ErrAlreadyDefined is returned when a Builder is used after Define returned
	ErrAlreadyDefined = errors.New("struct already defined")

	// ErrInvalidName is returned when a name does not classify to a valid identifier
	ErrInvalidName = errors.New("invalid struct name")

	// ErrDuplicateAttribute is returned when a header emits the same field twice
	ErrDuplicateAttribute = errors.New("duplicate attribute")

	// ErrMalformedModel is returned when a relation's model is neither a
	// structured type nor constructible from raw input
	ErrMalformedModel = errors.New("malformed model")

	// ErrInvalidNamespace is returned when struct_namespace metadata is not a *Namespace
	ErrInvalidNamespace = errors.New("invalid struct namespace")

	// ErrMissingAttribute is returned when raw input lacks a required attribute
	ErrMissingAttribute = errors.New("missing required attribute")

	// ErrInvalidValue is returned when raw input cannot be coerced to an attribute's type
	ErrInvalidValue = errors.New("invalid attribute value")
)

// ClassBuildError is returned when a struct cannot be created in a namespace
type ClassBuildError struct {
	Namespace string
	Name      string
	Err       error
}

// Error implements the error interface
func (e *ClassBuildError) Error() string {
	return fmt.Sprintf("cannot build struct %q in namespace %s: %v", e.Name, e.Namespace, e.Err)
}

// Unwrap returns the underlying cause
func (e *ClassBuildError) Unwrap() error {
	return e.Err
}

// AttributeError reports a value that does not fit an attribute during materialization
type AttributeError struct {
	Struct    string
	Attribute string
	Err       error
}

// Error implements the error interface
func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Struct, e.Attribute, e.Err)
}

// Unwrap returns the underlying cause
func (e *AttributeError) Unwrap() error {
	return e.Err
}
