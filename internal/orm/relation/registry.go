package relation

import (
	"github.com/conduit-lang/relmap/internal/orm/registry"
	"github.com/conduit-lang/relmap/internal/orm/schema"
)

// Registry is the immutable set of relations of an environment
type Registry struct {
	*registry.Registry[*Relation]
}

// NewRegistry builds a registry from relations keyed by name
func NewRegistry(relations map[string]*Relation) *Registry {
	return &Registry{Registry: registry.New("relation", relations)}
}

// FinalizeAll finalizes every relation in name order. It must only be
// called once every relation has been added.
func (r *Registry) FinalizeAll() error {
	return r.Each(func(_ string, rel *Relation) error {
		return rel.Finalize(r)
	})
}

func (r *Registry) graph() *schema.RelationshipGraph {
	schemas := make(map[string]*schema.ResourceSchema, r.Len())
	_ = r.Each(func(name string, rel *Relation) error {
		schemas[name] = rel.schema
		return nil
	})
	return schema.NewRelationshipGraph(schemas)
}

// DependencyOrder returns relation names with belongs_to targets first
func (r *Registry) DependencyOrder() ([]string, error) {
	return r.graph().TopologicalSort()
}

// Cycles returns the belongs_to cycles between relations
func (r *Registry) Cycles() [][]string {
	return r.graph().DetectCycles()
}

// Dependencies returns the belongs_to targets of a relation
func (r *Registry) Dependencies(name string) []string {
	return r.graph().GetDependencies(name)
}

// Dependents returns the relations holding a belongs_to to name
func (r *Registry) Dependents(name string) []string {
	return r.graph().GetDependents(name)
}
