// Package repository defines datastore adapters and the factory registry
// they are opened through.
//
// Adapter implementations live in internal/orm/adapters and register
// themselves from init(); import them for their side effects.
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/relation"
)

// Adapter is the contract every datastore adapter implements
type Adapter interface {
	// Name returns the adapter type, e.g. "sql"
	Name() string

	// Datasets lists the datasets the datastore exposes
	Datasets(ctx context.Context) ([]string, error)

	// ExtendRelation augments a freshly built relation, e.g. with introspected
	// fields and built-in methods
	ExtendRelation(ctx context.Context, rel *relation.Relation) error

	// Command builds the command called name for rel
	Command(name string, rel *relation.Relation, def command.Definition) (command.Command, error)

	// Close releases the adapter's connections
	Close() error
}

// Repository is a named datastore backed by one adapter
type Repository struct {
	name    string
	adapter Adapter
}

// New wraps an opened adapter
func New(name string, adapter Adapter) *Repository {
	return &Repository{name: name, adapter: adapter}
}

// Name returns the repository name
func (r *Repository) Name() string { return r.name }

// Adapter returns the repository's adapter
func (r *Repository) Adapter() Adapter { return r.adapter }

// Schema returns the dataset names of the repository in sorted order
func (r *Repository) Schema(ctx context.Context) ([]string, error) {
	if r.adapter == nil {
		return nil, nil
	}
	datasets, err := r.adapter.Datasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository %s: %w", r.name, err)
	}
	sort.Strings(datasets)
	return datasets, nil
}

// Config describes how to open a repository
type Config struct {
	Adapter string         `mapstructure:"adapter"`
	URL     string         `mapstructure:"url"`
	Options map[string]any `mapstructure:"options"`
}

// Factory opens an adapter from its configuration
type Factory func(ctx context.Context, cfg Config, logger *zap.Logger) (Adapter, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register adds an adapter factory to the registry.
// Called by adapter implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Adapters returns all registered adapter names (sorted)
func Adapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownAdapterError is returned when an unknown adapter type is requested
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %v)", e.Type, e.Available)
}

// Open creates the repository called name from cfg
func Open(ctx context.Context, name string, cfg Config, logger *zap.Logger) (*Repository, error) {
	if cfg.Adapter == "" {
		return nil, fmt.Errorf("repository %s: adapter type not specified", name)
	}

	registryMu.RLock()
	factory, ok := factories[cfg.Adapter]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Adapter, Available: Adapters()}
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	adapter, err := factory(ctx, cfg, logger.With(zap.String("repository", name)))
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", name, err)
	}
	return New(name, adapter), nil
}
