// Package reader shapes raw relation output into compiled result structs.
package reader

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/conduit-lang/relmap/internal/orm/registry"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

// DefaultMapper is the mapper every reader has
const DefaultMapper = "default"

var (
	// ErrRelationNotFound is returned when a reader names an unknown relation
	ErrRelationNotFound = errors.New("relation not found")

	// ErrMapperNotFound is returned when mapping with an unknown mapper
	ErrMapperNotFound = errors.New("mapper not found")

	// ErrInvalidMapper is returned when a mapper is added without a name or body
	ErrInvalidMapper = errors.New("mapper name and body are required")

	// ErrUnexpectedRows is returned when a relation method does not return rows
	ErrUnexpectedRows = errors.New("relation method did not return rows")
)

// Mapper turns raw rows into result values
type Mapper func(ctx context.Context, rows []map[string]any) ([]any, error)

// Options configure a reader declaration
type Options struct {
	// Relation names the relation to read; empty means the reader name
	Relation string
}

// Reader maps the output of one relation into its compiled struct
type Reader struct {
	name     string
	relation *relation.Relation
	model    types.Model
	mappers  map[string]Mapper
	order    []string
}

// Name returns the reader name
func (r *Reader) Name() string { return r.name }

// Relation returns the relation the reader is bound to
func (r *Reader) Relation() *relation.Relation { return r.relation }

// Model returns the compiled result model
func (r *Reader) Model() types.Model { return r.model }

// Mappers returns the mapper names in registration order
func (r *Reader) Mappers() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Map applies the mapper called name to rows
func (r *Reader) Map(ctx context.Context, name string, rows []map[string]any) ([]any, error) {
	mapper, ok := r.mappers[name]
	if !ok {
		return nil, fmt.Errorf("reader %s: %s: %w", r.name, name, ErrMapperNotFound)
	}
	return mapper(ctx, rows)
}

// Read calls a relation method and maps its rows. The mapper named after
// the method is used when there is one, the default mapper otherwise.
func (r *Reader) Read(ctx context.Context, method string, args ...any) ([]any, error) {
	out, err := r.relation.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	rows, err := asRows(out)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", r.relation.Name(), method, err)
	}

	mapper := method
	if _, ok := r.mappers[mapper]; !ok {
		mapper = DefaultMapper
	}
	return r.Map(ctx, mapper, rows)
}

func asRows(v any) ([]map[string]any, error) {
	switch rows := v.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		return rows, nil
	case map[string]any:
		return []map[string]any{rows}, nil
	case []any:
		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			m, ok := row.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: row %d is %T", ErrUnexpectedRows, i, row)
			}
			out[i] = m
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: got %s", ErrUnexpectedRows, reflect.TypeOf(v))
	}
}

// ModelMapper maps every row through model
func ModelMapper(model types.Model) Mapper {
	return func(_ context.Context, rows []map[string]any) ([]any, error) {
		out := make([]any, len(rows))
		for i, row := range rows {
			v, err := model.New(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
}

// Registry is the immutable set of readers of an environment
type Registry struct {
	*registry.Registry[*Reader]
}

// NewRegistry builds a registry from readers keyed by name
func NewRegistry(readers map[string]*Reader) *Registry {
	return &Registry{Registry: registry.New("reader", readers)}
}

// EmptyRegistry returns a registry without readers
func EmptyRegistry() *Registry {
	return &Registry{Registry: registry.Empty[*Reader]("reader")}
}
