package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/structs"
)

// Customization is the user-supplied block applied to a reader
type Customization func(b *Builder)

// Builder is handed to a Customization to add mappers
type Builder struct {
	reader *Reader
	errs   []error
}

// Reader returns the reader being built
func (b *Builder) Reader() *Reader { return b.reader }

// Map adds a mapper. Mappers added here may replace the default ones.
func (b *Builder) Map(name string, fn Mapper) *Builder {
	if name == "" || fn == nil {
		b.errs = append(b.errs, fmt.Errorf("mapper %q: %w", name, ErrInvalidMapper))
		return b
	}
	b.reader.add(name, fn)
	return b
}

// Then adds a mapper that post-processes the output of the mapper called base
func (b *Builder) Then(name, base string, fn func(v any) (any, error)) *Builder {
	baseMapper, ok := b.reader.mappers[base]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", base, ErrMapperNotFound))
		return b
	}
	return b.Map(name, chain(baseMapper, fn))
}

// CustomizationError collects the problems found while applying a reader
// customization block
type CustomizationError struct {
	Reader string
	Errs   []error
}

// Error implements the error interface
func (e *CustomizationError) Error() string {
	return fmt.Sprintf("reader %s: %v", e.Reader, errors.Join(e.Errs...))
}

// Unwrap exposes the individual errors to errors.Is and errors.As
func (e *CustomizationError) Unwrap() []error {
	return e.Errs
}

func (r *Reader) add(name string, fn Mapper) {
	if _, exists := r.mappers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.mappers[name] = fn
}

// Factory builds readers against one relation registry
type Factory struct {
	relations *relation.Registry
	compiler  *structs.Compiler
	namespace *structs.Namespace
}

// NewFactory returns a factory compiling result structs into ns
func NewFactory(relations *relation.Registry, compiler *structs.Compiler, ns *structs.Namespace) *Factory {
	return &Factory{relations: relations, compiler: compiler, namespace: ns}
}

// Build creates the reader called name. Its relation header is compiled
// into a struct; the reader gets the default mapper plus one mapper per
// method the relation's customization added, then customize runs.
func (f *Factory) Build(name string, opts Options, customize Customization) (*Reader, error) {
	relName := opts.Relation
	if relName == "" {
		relName = name
	}
	rel, ok := f.relations.Get(relName)
	if !ok {
		return nil, fmt.Errorf("reader %s: %s: %w", name, relName, ErrRelationNotFound)
	}

	model, err := f.compiler.Compile(rel.Name(), rel.Header(f.namespace), f.namespace)
	if err != nil {
		return nil, fmt.Errorf("reader %s: %w", name, err)
	}

	r := &Reader{
		name:     name,
		relation: rel,
		model:    model,
		mappers:  make(map[string]Mapper),
	}
	mapper := ModelMapper(model)
	r.add(DefaultMapper, mapper)
	for _, method := range rel.Methods() {
		r.add(method, mapper)
	}

	if customize != nil {
		b := &Builder{reader: r}
		customize(b)
		if len(b.errs) > 0 {
			return nil, &CustomizationError{Reader: name, Errs: b.errs}
		}
	}
	return r, nil
}

func chain(base Mapper, fn func(v any) (any, error)) Mapper {
	return func(ctx context.Context, rows []map[string]any) ([]any, error) {
		values, err := base(ctx, rows)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			if values[i], err = fn(v); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
		return values, nil
	}
}
