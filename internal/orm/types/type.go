package types

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Model is anything that can build a result value from raw attributes.
// Compiled structs, the open struct and plain Go models all satisfy it.
type Model interface {
	ModelName() string
	New(raw map[string]any) (any, error)
}

// CtyTyped is implemented by models that can describe themselves as a cty type
type CtyTyped interface {
	ImpliedType() cty.Type
}

// TypeKind is the shape of a compiled Type
type TypeKind int

const (
	TypeKindNominal TypeKind = iota
	TypeKindArray
	TypeKindStruct
	TypeKindConstructor
)

// Type is the value the struct compiler emits for a visited node.
// Types are immutable; every combinator returns a new value.
type Type struct {
	kind      TypeKind
	primitive PrimitiveType
	optional  bool
	elem      *Type
	model     Model
	meta      Meta
}

// Nominal returns the type of a primitive value
func Nominal(p PrimitiveType) Type {
	return Type{kind: TypeKindNominal, primitive: p}
}

// ArrayOf returns a sequence of elem
func ArrayOf(elem Type) Type {
	e := elem
	return Type{kind: TypeKindArray, elem: &e}
}

// StructOf uses a structured model directly as a member type
func StructOf(m Model) Type {
	return Type{kind: TypeKindStruct, model: m}
}

// Constructor wraps a model that is not a compiled struct so that raw input is
// passed through the model's constructor
func Constructor(m Model) Type {
	return Type{kind: TypeKindConstructor, model: m}
}

// Optional returns a copy of t that also accepts nil
func (t Type) Optional() Type {
	t.optional = true
	return t
}

// WithMeta returns a copy of t with meta merged over its metadata
func (t Type) WithMeta(meta Meta) Type {
	t.meta = t.meta.Merge(meta)
	return t
}

func (t Type) Kind() TypeKind           { return t.kind }
func (t Type) Primitive() PrimitiveType { return t.primitive }
func (t Type) IsOptional() bool         { return t.optional }
func (t Type) Model() Model             { return t.model }
func (t Type) Meta() Meta               { return t.meta.Clone() }

// Elem returns the element type of an array
func (t Type) Elem() (Type, bool) {
	if t.elem == nil {
		return Type{}, false
	}
	return *t.elem, true
}

// IsArray reports whether t is a sequence type
func (t Type) IsArray() bool { return t.kind == TypeKindArray }

// String renders t for diagnostics, e.g. "array<User>" or "int?"
func (t Type) String() string {
	var s string
	switch t.kind {
	case TypeKindArray:
		elem := "any"
		if t.elem != nil {
			elem = t.elem.String()
		}
		s = fmt.Sprintf("array<%s>", elem)
	case TypeKindStruct, TypeKindConstructor:
		if t.model == nil {
			s = "model"
		} else {
			s = t.model.ModelName()
		}
	default:
		s = t.primitive.String()
	}
	if t.optional {
		s += "?"
	}
	return s
}

// CtyType projects t onto the go-cty type system
func (t Type) CtyType() cty.Type {
	switch t.kind {
	case TypeKindArray:
		if t.elem == nil {
			return cty.List(cty.DynamicPseudoType)
		}
		return cty.List(t.elem.CtyType())
	case TypeKindStruct, TypeKindConstructor:
		if typed, ok := t.model.(CtyTyped); ok {
			return typed.ImpliedType()
		}
		return cty.DynamicPseudoType
	default:
		return PrimitiveCtyType(t.primitive)
	}
}

// PrimitiveCtyType maps a primitive onto its closest cty primitive
func PrimitiveCtyType(p PrimitiveType) cty.Type {
	switch {
	case p.IsNumeric():
		return cty.Number
	case p == TypeBool:
		return cty.Bool
	case p.IsText(), p.IsTemporal(), p == TypeUUID:
		return cty.String
	default:
		return cty.DynamicPseudoType
	}
}
