package types

import (
	"fmt"
	"strings"
)

// Kind tags a Node
type Kind int

const (
	// KindUnknown marks node shapes the struct compiler does not interpret
	KindUnknown Kind = iota
	KindNominal
	KindAttribute
	KindRelation
	KindConstructor
	KindConstrained
	KindEnum
)

// String returns the string representation of the node kind
func (k Kind) String() string {
	switch k {
	case KindNominal:
		return "nominal"
	case KindAttribute:
		return "attribute"
	case KindRelation:
		return "relation"
	case KindConstructor:
		return "constructor"
	case KindConstrained:
		return "constrained"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Node is one element of a header's type expression tree.
// Nodes are immutable after construction.
type Node interface {
	Kind() Kind
	Meta() Meta
	// String renders the node canonically; structurally equal nodes render equally
	String() string
}

// Header is the ordered list of nodes describing one entity
type Header []Node

// Fingerprint returns the canonical rendering of the whole header
func (h Header) Fingerprint() string {
	parts := make([]string, len(h))
	for i, n := range h {
		if n == nil {
			parts[i] = "nil"
			continue
		}
		parts[i] = n.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// NominalNode is a leaf carrying a primitive type
type NominalNode struct {
	primitive PrimitiveType
	optional  bool
	meta      Meta
}

// NewNominal builds a leaf node for a primitive type
func NewNominal(p PrimitiveType, meta Meta) *NominalNode {
	return &NominalNode{primitive: p, meta: meta.Clone()}
}

// NewOptionalNominal builds a leaf node whose values may be nil
func NewOptionalNominal(p PrimitiveType, meta Meta) *NominalNode {
	return &NominalNode{primitive: p, optional: true, meta: meta.Clone()}
}

func (n *NominalNode) Kind() Kind               { return KindNominal }
func (n *NominalNode) Meta() Meta               { return n.meta.Clone() }
func (n *NominalNode) Primitive() PrimitiveType { return n.primitive }
func (n *NominalNode) IsOptional() bool         { return n.optional }

func (n *NominalNode) String() string {
	opt := ""
	if n.optional {
		opt = "?"
	}
	return fmt.Sprintf("nominal(%s%s,%s)", n.primitive, opt, n.meta.Canonical())
}

// AttributeNode names an inner type within a header
type AttributeNode struct {
	name  string
	inner Node
	meta  Meta
}

// NewAttribute builds an attribute node. meta may carry alias and wrapped.
func NewAttribute(name string, inner Node, meta Meta) *AttributeNode {
	return &AttributeNode{name: name, inner: inner, meta: meta.Clone()}
}

func (n *AttributeNode) Kind() Kind   { return KindAttribute }
func (n *AttributeNode) Meta() Meta   { return n.meta.Clone() }
func (n *AttributeNode) Name() string { return n.name }
func (n *AttributeNode) Inner() Node  { return n.inner }

func (n *AttributeNode) String() string {
	inner := "nil"
	if n.inner != nil {
		inner = n.inner.String()
	}
	return fmt.Sprintf("attribute(%s,%s,%s)", n.name, inner, n.meta.Canonical())
}

// RelationNode is an association to another entity, carrying that entity's header
type RelationNode struct {
	name   string
	header Header
	meta   Meta
}

// NewRelation builds an association node
func NewRelation(name string, header Header, meta Meta) *RelationNode {
	h := make(Header, len(header))
	copy(h, header)
	return &RelationNode{name: name, header: h, meta: meta.Clone()}
}

func (n *RelationNode) Kind() Kind   { return KindRelation }
func (n *RelationNode) Meta() Meta   { return n.meta.Clone() }
func (n *RelationNode) Name() string { return n.name }

// Header returns a copy of the associated entity's header
func (n *RelationNode) Header() Header {
	h := make(Header, len(n.header))
	copy(h, n.header)
	return h
}

func (n *RelationNode) String() string {
	return fmt.Sprintf("relation(%s,%s,%s)", n.name, n.header.Fingerprint(), n.meta.Canonical())
}

// ConstructorNode wraps a definition with a named coercion function
type ConstructorNode struct {
	definition Node
	fn         string
}

// NewConstructor wraps definition with the coercion named fn
func NewConstructor(definition Node, fn string) *ConstructorNode {
	return &ConstructorNode{definition: definition, fn: fn}
}

func (n *ConstructorNode) Kind() Kind       { return KindConstructor }
func (n *ConstructorNode) Meta() Meta       { return nil }
func (n *ConstructorNode) Definition() Node { return n.definition }
func (n *ConstructorNode) Fn() string       { return n.fn }

func (n *ConstructorNode) String() string {
	return fmt.Sprintf("constructor(%s,%s)", nodeString(n.definition), n.fn)
}

// ConstrainedNode wraps a definition with named rules (e.g. "min(1)")
type ConstrainedNode struct {
	definition Node
	rules      []string
}

// NewConstrained wraps definition with rules
func NewConstrained(definition Node, rules ...string) *ConstrainedNode {
	r := make([]string, len(rules))
	copy(r, rules)
	return &ConstrainedNode{definition: definition, rules: r}
}

func (n *ConstrainedNode) Kind() Kind       { return KindConstrained }
func (n *ConstrainedNode) Meta() Meta       { return nil }
func (n *ConstrainedNode) Definition() Node { return n.definition }

// Rules returns a copy of the rule names
func (n *ConstrainedNode) Rules() []string {
	r := make([]string, len(n.rules))
	copy(r, n.rules)
	return r
}

func (n *ConstrainedNode) String() string {
	return fmt.Sprintf("constrained(%s,%q)", nodeString(n.definition), n.rules)
}

// EnumNode restricts an inner type to a fixed set of values
type EnumNode struct {
	inner  Node
	values []string
}

// NewEnum builds an enum over inner
func NewEnum(inner Node, values ...string) *EnumNode {
	v := make([]string, len(values))
	copy(v, values)
	return &EnumNode{inner: inner, values: v}
}

func (n *EnumNode) Kind() Kind  { return KindEnum }
func (n *EnumNode) Meta() Meta  { return nil }
func (n *EnumNode) Inner() Node { return n.inner }

// Values returns a copy of the allowed values
func (n *EnumNode) Values() []string {
	v := make([]string, len(n.values))
	copy(v, n.values)
	return v
}

func (n *EnumNode) String() string {
	return fmt.Sprintf("enum(%s,%q)", nodeString(n.inner), n.values)
}

// RawNode carries a tag the compiler has no interpretation for (sums, maps,
// lazy references, adapter-specific extensions). It always reports KindUnknown.
type RawNode struct {
	tag  string
	meta Meta
}

// NewRaw builds an uninterpreted node
func NewRaw(tag string, meta Meta) *RawNode {
	return &RawNode{tag: tag, meta: meta.Clone()}
}

func (n *RawNode) Kind() Kind  { return KindUnknown }
func (n *RawNode) Meta() Meta  { return n.meta.Clone() }
func (n *RawNode) Tag() string { return n.tag }

func (n *RawNode) String() string {
	return fmt.Sprintf("raw(%s,%s)", n.tag, n.meta.Canonical())
}

func nodeString(n Node) string {
	if n == nil {
		return "nil"
	}
	return n.String()
}
