package relation

import (
	"fmt"

	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

// Customization is the user-supplied block applied to a relation when it is
// declared
type Customization func(b *Builder)

// Builder is handed to a Customization. It records what the block adds so
// the relation can report which methods came from the user.
type Builder struct {
	rel  *Relation
	errs []error
}

// Customize applies fn to rel. Every problem reported by the block is
// returned together in a *CustomizationError.
func Customize(rel *Relation, fn Customization) error {
	if rel.finalized {
		return ErrFinalized
	}
	if fn == nil {
		return nil
	}

	b := &Builder{rel: rel}
	fn(b)
	if len(b.errs) > 0 {
		return &CustomizationError{Relation: rel.name, Errs: b.errs}
	}
	return nil
}

// Relation returns the relation being customized
func (b *Builder) Relation() *Relation { return b.rel }

// Dataset changes the underlying dataset name
func (b *Builder) Dataset(name string) *Builder {
	b.rel.schema.Dataset = name
	return b
}

// Attribute declares a field. Declared fields win over introspected ones.
func (b *Builder) Attribute(name string, p types.PrimitiveType, opts ...FieldOption) *Builder {
	f := &schema.Field{Name: name, Type: p}
	for _, opt := range opts {
		opt(f)
	}
	if err := b.rel.schema.AddField(f); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// PrimaryKey declares the primary key field
func (b *Builder) PrimaryKey(name string, p types.PrimitiveType) *Builder {
	return b.Attribute(name, p, Primary())
}

// BelongsTo associates one target through a foreign key on this relation
func (b *Builder) BelongsTo(name, target, foreignKey string) *Builder {
	return b.associate(schema.RelationshipBelongsTo, name, target, foreignKey)
}

// HasMany associates many targets through a foreign key on the target
func (b *Builder) HasMany(name, target, foreignKey string) *Builder {
	return b.associate(schema.RelationshipHasMany, name, target, foreignKey)
}

// HasOne associates one target through a foreign key on the target
func (b *Builder) HasOne(name, target, foreignKey string) *Builder {
	return b.associate(schema.RelationshipHasOne, name, target, foreignKey)
}

func (b *Builder) associate(kind schema.RelationType, name, target, foreignKey string) *Builder {
	err := b.rel.schema.AddRelationship(&schema.Relationship{
		Type:       kind,
		Name:       name,
		Target:     target,
		ForeignKey: foreignKey,
		Nullable:   kind != schema.RelationshipHasMany,
	})
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Def adds a method to the relation. The name is recorded as a
// customization-added method.
func (b *Builder) Def(name string, fn Method) *Builder {
	if name == "" || fn == nil {
		b.errs = append(b.errs, fmt.Errorf("method name and body are required"))
		return b
	}
	if _, exists := b.rel.methods[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", name, ErrDuplicateMethod))
		return b
	}
	b.rel.methods[name] = fn
	b.rel.customMethods = append(b.rel.customMethods, name)
	return b
}

// OnFinalize registers a hook that runs after associations are resolved
func (b *Builder) OnFinalize(fn FinalizeFunc) *Builder {
	if fn != nil {
		b.rel.finalizers = append(b.rel.finalizers, fn)
	}
	return b
}

// FieldOption adjusts a declared field
type FieldOption func(f *schema.Field)

// Nullable marks a field as accepting nil
func Nullable() FieldOption {
	return func(f *schema.Field) { f.Nullable = true }
}

// Primary marks a field as the primary key
func Primary() FieldOption {
	return func(f *schema.Field) { f.Primary = true }
}

// Alias renames the field in compiled structs
func Alias(alias string) FieldOption {
	return func(f *schema.Field) { f.Alias = alias }
}

// Enum restricts a field to values
func Enum(values ...string) FieldOption {
	return func(f *schema.Field) { f.EnumValues = values }
}

// Constraints attaches named constraints to a field
func Constraints(rules ...string) FieldOption {
	return func(f *schema.Field) { f.Constraints = rules }
}
