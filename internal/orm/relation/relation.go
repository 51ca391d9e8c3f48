// Package relation defines relations: named views over a dataset, owned by
// a datastore adapter and extended by user customization.
//
// Relations are built in two steps. Build and customization create every
// relation first; Finalize then runs once the complete Registry exists, so a
// relation may refer to any other relation regardless of declaration order.
package relation

import (
	"context"
	"fmt"

	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/orm/structs"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

// Adapter is the part of a datastore adapter a relation keeps a reference to
type Adapter interface {
	Name() string
}

// Method is a behavior installed on a relation
type Method func(ctx context.Context, rel *Relation, args ...any) (any, error)

// FinalizeFunc runs once every relation exists
type FinalizeFunc func(registry *Registry, rel *Relation) error

// Options configure a relation declaration
type Options struct {
	// Repository names the owning repository; empty means "default"
	Repository string
	// Dataset overrides the dataset name; empty means the relation name
	Dataset string
}

// DefaultRepository is used when a declaration does not name a repository
const DefaultRepository = "default"

// RepositoryName returns the owning repository, applying the default
func (o Options) RepositoryName() string {
	if o.Repository == "" {
		return DefaultRepository
	}
	return o.Repository
}

// Relation is a named, adapter-backed view over a dataset
type Relation struct {
	name       string
	repository string
	adapter    Adapter
	schema     *schema.ResourceSchema

	methods        map[string]Method
	customMethods  []string
	adapterMethods []string
	finalizers     []FinalizeFunc

	associations map[string]*Relation
	finalized    bool
}

// Build creates the base relation for an adapter
func Build(name string, adapter Adapter, opts Options) *Relation {
	s := schema.NewResourceSchema(name)
	if opts.Dataset != "" {
		s.Dataset = opts.Dataset
	}
	return &Relation{
		name:         name,
		repository:   opts.RepositoryName(),
		adapter:      adapter,
		schema:       s,
		methods:      make(map[string]Method),
		associations: make(map[string]*Relation),
	}
}

// Name returns the relation name
func (r *Relation) Name() string { return r.name }

// Repository returns the name of the owning repository
func (r *Relation) Repository() string { return r.repository }

// Adapter returns the adapter that built the relation
func (r *Relation) Adapter() Adapter { return r.adapter }

// Dataset returns the name of the underlying dataset
func (r *Relation) Dataset() string { return r.schema.Dataset }

// Schema returns the relation schema. Adapters may add fields to it until
// the relation is finalized.
func (r *Relation) Schema() *schema.ResourceSchema { return r.schema }

// Finalized reports whether Finalize has completed
func (r *Relation) Finalized() bool { return r.finalized }

// Methods returns the names of the methods added by customization, in the
// order they were declared
func (r *Relation) Methods() []string {
	out := make([]string, len(r.customMethods))
	copy(out, r.customMethods)
	return out
}

// AdapterMethods returns the names of the methods installed by the adapter
func (r *Relation) AdapterMethods() []string {
	out := make([]string, len(r.adapterMethods))
	copy(out, r.adapterMethods)
	return out
}

// HasMethod reports whether the relation responds to name
func (r *Relation) HasMethod(name string) bool {
	_, ok := r.methods[name]
	return ok
}

// Call invokes a method installed on the relation
func (r *Relation) Call(ctx context.Context, name string, args ...any) (any, error) {
	fn, ok := r.methods[name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", r.name, name, ErrMethodNotFound)
	}
	return fn(ctx, r, args...)
}

// DefineAdapterMethod installs a method on behalf of the adapter. Methods
// added by customization take precedence, so an existing name is kept.
func (r *Relation) DefineAdapterMethod(name string, fn Method) error {
	if r.finalized {
		return ErrFinalized
	}
	if _, exists := r.methods[name]; exists {
		return nil
	}
	r.methods[name] = fn
	r.adapterMethods = append(r.adapterMethods, name)
	return nil
}

// Association returns the relation an association resolved to
func (r *Relation) Association(name string) (*Relation, bool) {
	target, ok := r.associations[name]
	return target, ok
}

// Finalize resolves associations against registry and runs the finalize
// hooks installed by customization
func (r *Relation) Finalize(registry *Registry) error {
	if r.finalized {
		return nil
	}

	for _, assoc := range r.schema.Relationships() {
		target, ok := registry.Get(assoc.Target)
		if !ok {
			return &FinalizeOrderError{Relation: r.name, Missing: assoc.Target}
		}
		r.associations[assoc.Name] = target
	}

	for _, fn := range r.finalizers {
		if err := fn(registry, r); err != nil {
			return fmt.Errorf("finalize %s: %w", r.name, err)
		}
	}

	r.finalized = true
	return nil
}

// Header builds the type header of the relation: its fields followed by one
// relation node per resolved association. Association structs are placed in
// a namespace nested under the relation's own struct name so that two
// relations may embed differently shaped structs of the same target.
func (r *Relation) Header(ns *structs.Namespace) types.Header {
	header := r.schema.Header()

	var nested *structs.Namespace
	for _, assoc := range r.schema.Relationships() {
		target, ok := r.associations[assoc.Name]
		if !ok {
			continue
		}
		if nested == nil {
			nested = ns.Child(structs.Classify(r.name))
		}
		header = append(header, types.NewRelation(target.Name(), target.schema.Header(), types.Meta{
			types.MetaCombineName:     assoc.Name,
			types.MetaCombineType:     assoc.CombineType(),
			types.MetaStructNamespace: nested,
		}))
	}
	return header
}

func (r *Relation) String() string {
	adapter := "none"
	if r.adapter != nil {
		adapter = r.adapter.Name()
	}
	return fmt.Sprintf("#<Relation %s dataset=%s adapter=%s>", r.name, r.schema.Dataset, adapter)
}
