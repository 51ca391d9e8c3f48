package structs

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/conduit-lang/relmap/internal/orm/types"
)

// Attribute is one field of a compiled struct
type Attribute struct {
	Name string
	Type types.Type
}

// Struct is a named result type with a fixed attribute set. Structs are
// created by Namespace.Define and never change afterwards.
type Struct struct {
	name       string
	namespace  *Namespace
	attributes []Attribute
	index      map[string]int
	base       *Struct
}

// Name returns the class name, e.g. "User"
func (s *Struct) Name() string { return s.name }

// Namespace returns the namespace the struct is defined in
func (s *Struct) Namespace() *Namespace { return s.namespace }

// Base returns the struct first defined under the same name in the
// namespace, or nil when s is that struct
func (s *Struct) Base() *Struct { return s.base }

// FullName returns the namespace-qualified name, e.g. "Structs.User"
func (s *Struct) FullName() string {
	if s.namespace == nil || s.namespace.path == "" {
		return s.name
	}
	return s.namespace.path + "." + s.name
}

// ModelName implements types.Model
func (s *Struct) ModelName() string { return s.FullName() }

func (s *Struct) String() string { return s.FullName() }

// Attributes returns the attributes in declaration order
func (s *Struct) Attributes() []Attribute {
	out := make([]Attribute, len(s.attributes))
	copy(out, s.attributes)
	return out
}

// Attribute looks up an attribute by name
func (s *Struct) Attribute(name string) (Attribute, bool) {
	i, ok := s.index[name]
	if !ok {
		return Attribute{}, false
	}
	return s.attributes[i], true
}

// AttributeNames returns attribute names in declaration order
func (s *Struct) AttributeNames() []string {
	names := make([]string, len(s.attributes))
	for i, a := range s.attributes {
		names[i] = a.Name
	}
	return names
}

// ImpliedType describes the struct as a cty object. Optional attributes are
// optional object attributes.
func (s *Struct) ImpliedType() cty.Type {
	attrs := make(map[string]cty.Type, len(s.attributes))
	var optional []string
	for _, a := range s.attributes {
		attrs[a.Name] = a.Type.CtyType()
		if a.Type.IsOptional() {
			optional = append(optional, a.Name)
		}
	}
	if len(optional) == 0 {
		return cty.Object(attrs)
	}
	return cty.ObjectWithOptionalAttrs(attrs, optional)
}

// New materializes a record from raw attribute values. Unknown keys are
// ignored; a missing or nil value is only accepted for optional attributes.
func (s *Struct) New(raw map[string]any) (any, error) {
	values := make([]any, len(s.attributes))
	for i, a := range s.attributes {
		v, present := raw[a.Name]
		if !present || v == nil {
			if !a.Type.IsOptional() {
				return nil, &AttributeError{Struct: s.FullName(), Attribute: a.Name, Err: ErrMissingAttribute}
			}
			continue
		}

		coerced, err := coerce(a.Type, v)
		if err != nil {
			return nil, &AttributeError{Struct: s.FullName(), Attribute: a.Name, Err: err}
		}
		values[i] = coerced
	}
	return &Record{schema: s, values: values}, nil
}

func coerce(t types.Type, v any) (any, error) {
	switch t.Kind() {
	case types.TypeKindArray:
		elem, _ := t.Elem()
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("%w: expected a sequence, got %T", ErrInvalidValue, v)
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			if item == nil {
				continue
			}
			c, err := coerce(elem, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil

	case types.TypeKindStruct, types.TypeKindConstructor:
		model := t.Model()
		if model == nil {
			return v, nil
		}
		if rec, ok := v.(*Record); ok && rec.schema == model {
			return rec, nil
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected attributes for %s, got %T", ErrInvalidValue, model.ModelName(), v)
		}
		return model.New(m)

	default:
		return v, nil
	}
}

// Record is an instance of a compiled struct
type Record struct {
	schema *Struct
	values []any
}

// Struct returns the record's struct
func (r *Record) Struct() *Struct { return r.schema }

// Get returns the value of an attribute. Unknown names report false.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.schema.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Values returns the attribute values in declaration order
func (r *Record) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// ToMap converts the record, and nested records, back into raw attributes
func (r *Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, a := range r.schema.attributes {
		out[a.Name] = unwrap(r.values[i])
	}
	return out
}

func unwrap(v any) any {
	switch val := v.(type) {
	case *Record:
		if val == nil {
			return nil
		}
		return val.ToMap()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = unwrap(item)
		}
		return out
	default:
		return v
	}
}

func (r *Record) String() string {
	return fmt.Sprintf("#<%s %v>", r.schema.FullName(), r.ToMap())
}
