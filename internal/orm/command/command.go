// Package command defines adapter-built units of work bound to a relation
// and the registries they are collected in.
package command

import (
	"context"
	"fmt"

	"github.com/conduit-lang/relmap/internal/orm/registry"
)

// Type is the kind of write a command performs
type Type int

const (
	Create Type = iota
	Update
	Delete
)

// String returns the string representation of the command type
func (t Type) String() string {
	switch t {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseType converts a string to a Type
func ParseType(s string) (Type, error) {
	switch s {
	case "create":
		return Create, nil
	case "update":
		return Update, nil
	case "delete":
		return Delete, nil
	default:
		return 0, fmt.Errorf("unknown command type: %s", s)
	}
}

// Result is the cardinality a command returns
type Result int

const (
	One Result = iota
	Many
)

// Definition declares a command for a relation
type Definition struct {
	Name   string
	Type   Type
	Result Result
	// Attributes restricts the accepted input keys; empty accepts every field
	Attributes []string
	// Key is the attribute identifying rows for update and delete; empty means
	// the primary key
	Key string
}

// Command is a unit of work built by an adapter for one relation
type Command interface {
	Name() string
	Relation() string
	Type() Type
	Call(ctx context.Context, input map[string]any) (any, error)
}

// Commands holds the commands of one relation keyed by command name
type Commands = registry.Registry[Command]

// NewCommands builds the registry of one relation's commands
func NewCommands(commands map[string]Command) *Commands {
	return registry.New("command", commands)
}

// Registry holds every relation's commands keyed by relation name
type Registry struct {
	*registry.Registry[*Commands]
}

// NewRegistry builds the top-level command registry
func NewRegistry(byRelation map[string]*Commands) *Registry {
	return &Registry{Registry: registry.New("relation commands", byRelation)}
}

// EmptyRegistry returns a registry without commands
func EmptyRegistry() *Registry {
	return &Registry{Registry: registry.Empty[*Commands]("relation commands")}
}

// Command returns the command called name of relation
func (r *Registry) Command(relation, name string) (Command, error) {
	cmds, err := r.Fetch(relation)
	if err != nil {
		return nil, err
	}
	return cmds.Fetch(name)
}

// Count returns the number of commands across relations
func (r *Registry) Count() int {
	n := 0
	_ = r.Each(func(_ string, cmds *Commands) error {
		n += cmds.Len()
		return nil
	})
	return n
}
