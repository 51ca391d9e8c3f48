// Package schema describes the attributes and associations of a relation.
// A ResourceSchema is the source every relation header is generated from.
package schema

import (
	"fmt"

	"github.com/conduit-lang/relmap/internal/orm/types"
)

// Field represents one attribute of a dataset
type Field struct {
	Name        string
	Type        types.PrimitiveType
	Nullable    bool
	Primary     bool
	EnumValues  []string
	Constraints []string

	// Alias renames the attribute in compiled structs
	Alias string
}

// String renders the field type, e.g. "int!" or "string?"
func (f *Field) String() string {
	s := f.Type.String()
	if len(f.EnumValues) > 0 {
		s = fmt.Sprintf("enum%v", f.EnumValues)
	}
	if f.Nullable {
		return s + "?"
	}
	return s + "!"
}

// Node converts the field into an attribute node for a relation header
func (f *Field) Node() types.Node {
	var inner types.Node
	if f.Nullable {
		inner = types.NewOptionalNominal(f.Type, nil)
	} else {
		inner = types.NewNominal(f.Type, nil)
	}
	if len(f.EnumValues) > 0 {
		inner = types.NewEnum(inner, f.EnumValues...)
	}
	if len(f.Constraints) > 0 {
		inner = types.NewConstrained(inner, f.Constraints...)
	}

	var meta types.Meta
	if f.Alias != "" {
		meta = types.Meta{types.MetaAlias: f.Alias}
	}
	return types.NewAttribute(f.Name, inner, meta)
}

// RelationType represents the type of relationship
type RelationType int

const (
	RelationshipBelongsTo RelationType = iota
	RelationshipHasMany
	RelationshipHasOne
)

// String returns the string representation of the relationship type
func (r RelationType) String() string {
	switch r {
	case RelationshipBelongsTo:
		return "belongs_to"
	case RelationshipHasMany:
		return "has_many"
	case RelationshipHasOne:
		return "has_one"
	default:
		return "unknown"
	}
}

// ParseRelationType converts a string to a RelationType
func ParseRelationType(s string) (RelationType, error) {
	switch s {
	case "belongs_to":
		return RelationshipBelongsTo, nil
	case "has_many":
		return RelationshipHasMany, nil
	case "has_one":
		return RelationshipHasOne, nil
	default:
		return 0, fmt.Errorf("unknown relationship type: %s", s)
	}
}

// Many reports whether the relationship combines into a sequence
func (r RelationType) Many() bool { return r == RelationshipHasMany }

// Relationship represents an association from one relation to another
type Relationship struct {
	Type RelationType
	// Name is the attribute the associated entity is combined under
	Name string
	// Target is the name of the associated relation
	Target string
	// ForeignKey is the attribute joining the two relations. For belongs_to it
	// lives on the owner, otherwise on the target.
	ForeignKey string
	Nullable   bool
}

// CombineType returns the combine_type metadata value for the relationship
func (r *Relationship) CombineType() string {
	if r.Type.Many() {
		return types.CombineMany
	}
	return "one"
}

// ResourceSchema represents the attributes and associations of one relation
type ResourceSchema struct {
	Name    string
	Dataset string

	fields        []*Field
	fieldIndex    map[string]int
	relationships []*Relationship
	relIndex      map[string]int
}

// NewResourceSchema creates an empty schema whose dataset is the relation name
func NewResourceSchema(name string) *ResourceSchema {
	return &ResourceSchema{
		Name:       name,
		Dataset:    name,
		fieldIndex: make(map[string]int),
		relIndex:   make(map[string]int),
	}
}

// AddField appends a field. Field names are unique within a schema.
func (r *ResourceSchema) AddField(f *Field) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("resource %s: field name is required", r.Name)
	}
	if _, exists := r.fieldIndex[f.Name]; exists {
		return fmt.Errorf("resource %s: field %s is already defined", r.Name, f.Name)
	}
	r.fieldIndex[f.Name] = len(r.fields)
	r.fields = append(r.fields, f)
	return nil
}

// SetField adds f or replaces the field with the same name in place
func (r *ResourceSchema) SetField(f *Field) {
	if i, exists := r.fieldIndex[f.Name]; exists {
		r.fields[i] = f
		return
	}
	r.fieldIndex[f.Name] = len(r.fields)
	r.fields = append(r.fields, f)
}

// AddRelationship appends an association. Names are unique within a schema
// and may not shadow a field.
func (r *ResourceSchema) AddRelationship(rel *Relationship) error {
	if rel == nil || rel.Name == "" {
		return fmt.Errorf("resource %s: relationship name is required", r.Name)
	}
	if _, exists := r.relIndex[rel.Name]; exists {
		return fmt.Errorf("resource %s: relationship %s is already defined", r.Name, rel.Name)
	}
	if _, exists := r.fieldIndex[rel.Name]; exists {
		return fmt.Errorf("resource %s: relationship %s conflicts with a field", r.Name, rel.Name)
	}
	r.relIndex[rel.Name] = len(r.relationships)
	r.relationships = append(r.relationships, rel)
	return nil
}

// Field returns the field called name
func (r *ResourceSchema) Field(name string) (*Field, bool) {
	i, ok := r.fieldIndex[name]
	if !ok {
		return nil, false
	}
	return r.fields[i], true
}

// Fields returns the fields in declaration order
func (r *ResourceSchema) Fields() []*Field {
	out := make([]*Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// FieldNames returns field names in declaration order
func (r *ResourceSchema) FieldNames() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Relationship returns the association called name
func (r *ResourceSchema) Relationship(name string) (*Relationship, bool) {
	i, ok := r.relIndex[name]
	if !ok {
		return nil, false
	}
	return r.relationships[i], true
}

// Relationships returns the associations in declaration order
func (r *ResourceSchema) Relationships() []*Relationship {
	out := make([]*Relationship, len(r.relationships))
	copy(out, r.relationships)
	return out
}

// HasField returns true if the resource has a field with the given name
func (r *ResourceSchema) HasField(name string) bool {
	_, exists := r.fieldIndex[name]
	return exists
}

// HasRelationship returns true if the resource has a relationship with the given name
func (r *ResourceSchema) HasRelationship(name string) bool {
	_, exists := r.relIndex[name]
	return exists
}

// PrimaryKey returns the primary key field
func (r *ResourceSchema) PrimaryKey() (*Field, error) {
	for _, field := range r.fields {
		if field.Primary {
			return field, nil
		}
	}
	return nil, fmt.Errorf("resource %s has no primary key", r.Name)
}

// Header returns the attribute nodes of the schema's fields. Associations are
// added by the owning relation, which knows the target headers.
func (r *ResourceSchema) Header() types.Header {
	header := make(types.Header, len(r.fields))
	for i, f := range r.fields {
		header[i] = f.Node()
	}
	return header
}
