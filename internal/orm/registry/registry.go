// Package registry provides the immutable name-indexed container used for
// relations, readers and commands.
package registry

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned when a name is not registered
var ErrNotFound = errors.New("not registered")

// Registry maps names to values. It is built once and never changes, so it
// is safe for concurrent reads without locking.
type Registry[T any] struct {
	kind  string
	items map[string]T
	names []string
}

// New builds a registry from items. kind names the contents in errors
// (e.g. "relation"). The map is copied.
func New[T any](kind string, items map[string]T) *Registry[T] {
	r := &Registry[T]{
		kind:  kind,
		items: make(map[string]T, len(items)),
		names: make([]string, 0, len(items)),
	}
	for name, item := range items {
		r.items[name] = item
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Empty returns a registry without entries
func Empty[T any](kind string) *Registry[T] {
	return New[T](kind, nil)
}

// Kind returns what the registry holds
func (r *Registry[T]) Kind() string { return r.kind }

// Get returns the value registered under name
func (r *Registry[T]) Get(name string) (T, bool) {
	item, ok := r.items[name]
	return item, ok
}

// Fetch is Get with an error naming the missing entry
func (r *Registry[T]) Fetch(name string) (T, error) {
	item, ok := r.items[name]
	if !ok {
		return item, fmt.Errorf("%s %q: %w", r.kind, name, ErrNotFound)
	}
	return item, nil
}

// Has reports whether name is registered
func (r *Registry[T]) Has(name string) bool {
	_, ok := r.items[name]
	return ok
}

// Names returns the registered names in sorted order
func (r *Registry[T]) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of entries
func (r *Registry[T]) Len() int { return len(r.items) }

// IsEmpty reports whether the registry has no entries
func (r *Registry[T]) IsEmpty() bool { return len(r.items) == 0 }

// Each calls fn for every entry in name order, stopping at the first error
func (r *Registry[T]) Each(fn func(name string, item T) error) error {
	for _, name := range r.names {
		if err := fn(name, r.items[name]); err != nil {
			return err
		}
	}
	return nil
}

// ToMap returns a copy of the entries
func (r *Registry[T]) ToMap() map[string]T {
	out := make(map[string]T, len(r.items))
	for k, v := range r.items {
		out[k] = v
	}
	return out
}
