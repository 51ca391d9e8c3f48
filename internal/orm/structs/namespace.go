package structs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/conduit-lang/relmap/internal/orm/types"
)

// Namespace is a container compiled structs are defined in. Two namespaces
// never share structs, even when their paths are equal.
type Namespace struct {
	id       uuid.UUID
	path     string
	sealed   bool
	mu       sync.RWMutex
	structs  map[string]*Struct
	children map[string]*Namespace
}

// NewNamespace creates an empty namespace at path (e.g. "Structs")
func NewNamespace(path string) *Namespace {
	return &Namespace{
		id:       uuid.New(),
		path:     path,
		structs:  make(map[string]*Struct),
		children: make(map[string]*Namespace),
	}
}

// NewSealedNamespace creates a namespace that rejects every definition
func NewSealedNamespace(path string) *Namespace {
	ns := NewNamespace(path)
	ns.sealed = true
	return ns
}

// Path returns the namespace path
func (ns *Namespace) Path() string { return ns.path }

// ID returns the namespace identity
func (ns *Namespace) ID() uuid.UUID { return ns.id }

// Sealed reports whether the namespace rejects definitions
func (ns *Namespace) Sealed() bool { return ns.sealed }

// String identifies the namespace uniquely; used in cache keys
func (ns *Namespace) String() string {
	return ns.path + "#" + ns.id.String()
}

// Child returns the nested namespace called name, creating it on first use.
// Repeated calls return the same namespace.
func (ns *Namespace) Child(name string) *Namespace {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if child, ok := ns.children[name]; ok {
		return child
	}
	child := NewNamespace(ns.path + "." + name)
	child.sealed = ns.sealed
	ns.children[name] = child
	return child
}

// Lookup finds a struct by class name
func (ns *Namespace) Lookup(name string) (*Struct, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	s, ok := ns.structs[name]
	return s, ok
}

// Names returns the defined class names in sorted order
func (ns *Namespace) Names() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	names := make([]string, 0, len(ns.structs))
	for name := range ns.structs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder receives the setup call of Define. It is only valid during that call.
type Builder struct {
	s    *Struct
	done bool
}

// Attribute appends a field to the struct under construction
func (b *Builder) Attribute(name string, t types.Type) error {
	if b.done {
		return ErrAlreadyDefined
	}
	if _, exists := b.s.index[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAttribute, name)
	}
	b.s.index[name] = len(b.s.attributes)
	b.s.attributes = append(b.s.attributes, Attribute{Name: name, Type: t})
	return nil
}

// Define creates the struct called name and runs setup on it. The first
// struct defined under a name is published in the namespace; later ones keep
// the display name, get their own identity and report the first as Base.
// Nothing is published when setup fails.
func (ns *Namespace) Define(name string, setup func(b *Builder) error) (*Struct, error) {
	fail := func(err error) (*Struct, error) {
		return nil, &ClassBuildError{Namespace: ns.path, Name: name, Err: err}
	}

	if ns.sealed {
		return fail(ErrNamespaceSealed)
	}
	if !validIdentifier(name) {
		return fail(ErrInvalidName)
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	base, exists := ns.structs[name]

	s := &Struct{
		name:      name,
		namespace: ns,
		index:     make(map[string]int),
		base:      base,
	}
	b := &Builder{s: s}
	if setup != nil {
		if err := setup(b); err != nil {
			return fail(err)
		}
	}
	b.done = true

	if !exists {
		ns.structs[name] = s
	}
	return s, nil
}
