// Package env holds the finalized environment handed to the runtime layer.
package env

import (
	"context"
	"fmt"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/reader"
	"github.com/conduit-lang/relmap/internal/orm/registry"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
)

// Repository is a configured datastore: its adapter and the datasets it exposes
type Repository interface {
	Adapter() repository.Adapter
	Schema(ctx context.Context) ([]string, error)
}

// Env is the immutable result of finalizing a setup
type Env struct {
	repositories *registry.Registry[Repository]
	relations    *relation.Registry
	readers      *reader.Registry
	commands     *command.Registry
}

// New assembles an environment
func New(repositories map[string]Repository, relations *relation.Registry, readers *reader.Registry, commands *command.Registry) *Env {
	return &Env{
		repositories: registry.New("repository", repositories),
		relations:    relations,
		readers:      readers,
		commands:     commands,
	}
}

// Repositories returns the repositories keyed by name
func (e *Env) Repositories() *registry.Registry[Repository] { return e.repositories }

// Relations returns the relation registry
func (e *Env) Relations() *relation.Registry { return e.relations }

// Readers returns the reader registry
func (e *Env) Readers() *reader.Registry { return e.readers }

// Commands returns the command registry
func (e *Env) Commands() *command.Registry { return e.commands }

// Relation returns the relation called name
func (e *Env) Relation(name string) (*relation.Relation, error) {
	return e.relations.Fetch(name)
}

// Reader returns the reader called name
func (e *Env) Reader(name string) (*reader.Reader, error) {
	return e.readers.Fetch(name)
}

// Command returns the command called name of relation
func (e *Env) Command(relation, name string) (command.Command, error) {
	return e.commands.Command(relation, name)
}

// Close closes every repository adapter, returning the first error
func (e *Env) Close() error {
	var first error
	_ = e.repositories.Each(func(name string, repo Repository) error {
		adapter := repo.Adapter()
		if adapter == nil {
			return nil
		}
		if err := adapter.Close(); err != nil && first == nil {
			first = fmt.Errorf("close repository %s: %w", name, err)
		}
		return nil
	})
	return first
}

func (e *Env) String() string {
	return fmt.Sprintf("#<Env repositories=%v relations=%v readers=%v commands=%d>",
		e.repositories.Names(), e.relations.Names(), e.readers.Names(), e.commands.Count())
}
