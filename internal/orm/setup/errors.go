package setup

import (
	"errors"
	"fmt"
)

var (
	// ErrRepositoryNotFound is returned when a relation names an unknown repository
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrNoAdapter is returned when a repository has no adapter
	ErrNoAdapter = errors.New("repository has no adapter")

	// ErrNoCommand is returned when an adapter builds nothing for a definition
	ErrNoCommand = errors.New("adapter returned no command")

	// ErrAlreadyRun is returned when a Finalize is run a second time
	ErrAlreadyRun = errors.New("finalize already ran")
)

// RelationResolutionError is returned when a relation cannot be built from
// its repository
type RelationResolutionError struct {
	Relation   string
	Repository string
	Err        error
}

// Error implements the error interface
func (e *RelationResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve relation %s in repository %s: %v", e.Relation, e.Repository, e.Err)
}

// Unwrap returns the underlying cause
func (e *RelationResolutionError) Unwrap() error {
	return e.Err
}

// CommandBuildError is returned when an adapter fails to build a command
type CommandBuildError struct {
	Relation string
	Command  string
	Err      error
}

// Error implements the error interface
func (e *CommandBuildError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("cannot build commands for relation %s: %v", e.Relation, e.Err)
	}
	return fmt.Sprintf("cannot build command %s for relation %s: %v", e.Command, e.Relation, e.Err)
}

// Unwrap returns the underlying cause
func (e *CommandBuildError) Unwrap() error {
	return e.Err
}
