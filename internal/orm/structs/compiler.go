// Package structs compiles relation headers into result structs.
//
// A header is a list of type nodes. The compiler walks it, turns every node it
// understands into a field type and defines a struct with those fields in a
// namespace. Compilation is memoized: the same name, header and namespace
// always produce the same *Struct.
package structs

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/cache"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

// Compiler turns headers into struct models
type Compiler struct {
	cache  *cache.Cache
	hasher *cache.Hasher
	logger *zap.Logger
}

// Option configures a Compiler
type Option func(*Compiler)

// WithCache makes the compiler store its structs in c, under the "structs"
// namespace. Compilers sharing a cache share compiled structs.
func WithCache(c *cache.Cache) Option {
	return func(comp *Compiler) {
		comp.cache = c.Namespaced("structs")
	}
}

// WithLogger sets the logger used for skipped nodes and new definitions
func WithLogger(logger *zap.Logger) Option {
	return func(comp *Compiler) {
		if logger != nil {
			comp.logger = logger
		}
	}
}

// NewCompiler creates a compiler with its own cache unless WithCache is given
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		hasher: cache.NewHasher(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.New().Namespaced("structs")
	}
	return c
}

// Stats returns cache statistics of the compiler
func (c *Compiler) Stats() cache.Stats {
	return c.cache.Stats()
}

// Compile returns the model for the entity called name described by header.
// The result is *Struct, or OpenStruct when no node of the header produces a
// field.
func (c *Compiler) Compile(name string, header []types.Node, ns *Namespace) (types.Model, error) {
	if ns == nil {
		return nil, ErrNilNamespace
	}

	key := c.hasher.HashParts(name, ns.String(), types.Header(header).Fingerprint())
	v, err := c.cache.FetchOrStore(key, func() (any, error) {
		return c.build(name, header, ns)
	})
	if err != nil {
		return nil, err
	}
	return v.(types.Model), nil
}

func (c *Compiler) build(name string, header []types.Node, ns *Namespace) (types.Model, error) {
	attributes := make([]Attribute, 0, len(header))
	for _, node := range header {
		attr, ok, err := c.visitMember(node, ns)
		if err != nil {
			return nil, err
		}
		if ok {
			attributes = append(attributes, attr)
		}
	}

	if len(attributes) == 0 {
		return OpenStruct, nil
	}

	className := Classify(name)
	s, err := ns.Define(className, func(b *Builder) error {
		for _, a := range attributes {
			if err := b.Attribute(a.Name, a.Type); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("defined struct",
		zap.String("struct", s.FullName()),
		zap.Strings("attributes", s.AttributeNames()))
	return s, nil
}

// visitMember handles a top-level header node: relations and attributes
// become named fields, everything else is skipped.
func (c *Compiler) visitMember(node types.Node, ns *Namespace) (Attribute, bool, error) {
	switch n := node.(type) {
	case *types.RelationNode:
		t, err := c.visitRelation(n, ns)
		if err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Name: relationName(n), Type: t}, true, nil

	case *types.AttributeNode:
		t, ok, err := c.visitType(n.Inner(), ns)
		if err != nil || !ok {
			return Attribute{}, false, err
		}
		return Attribute{Name: attributeName(n), Type: t.WithMeta(n.Meta())}, true, nil

	default:
		c.skip(node)
		return Attribute{}, false, nil
	}
}

// visitType interprets a node in type position
func (c *Compiler) visitType(node types.Node, ns *Namespace) (types.Type, bool, error) {
	switch n := node.(type) {
	case *types.NominalNode:
		t := types.Nominal(n.Primitive())
		if n.IsOptional() {
			t = t.Optional()
		}
		return t.WithMeta(n.Meta()), true, nil

	case *types.RelationNode:
		t, err := c.visitRelation(n, ns)
		return t, err == nil, err

	case *types.AttributeNode:
		t, ok, err := c.visitType(n.Inner(), ns)
		if err != nil || !ok {
			return types.Type{}, false, err
		}
		return t.WithMeta(n.Meta()), true, nil

	case *types.ConstructorNode:
		return c.visitType(n.Definition(), ns)

	case *types.ConstrainedNode:
		t, ok, err := c.visitType(n.Definition(), ns)
		if err != nil || !ok {
			return t, ok, err
		}
		return t.WithMeta(types.Meta{types.MetaConstraints: n.Rules()}), true, nil

	case *types.EnumNode:
		t, ok, err := c.visitType(n.Inner(), ns)
		if err != nil || !ok {
			return t, ok, err
		}
		return t.WithMeta(types.Meta{types.MetaEnumValues: n.Values()}), true, nil

	default:
		c.skip(node)
		return types.Type{}, false, nil
	}
}

func (c *Compiler) visitRelation(n *types.RelationNode, ns *Namespace) (types.Type, error) {
	meta := n.Meta()
	name := relationName(n)

	target := ns
	if raw, ok := meta[types.MetaStructNamespace]; ok && raw != nil {
		nested, ok := raw.(*Namespace)
		if !ok {
			return types.Type{}, fmt.Errorf("relation %s: %w: %T", n.Name(), ErrInvalidNamespace, raw)
		}
		target = nested
	}

	var model types.Model
	if raw, ok := meta[types.MetaModel]; ok && raw != nil {
		resolved, err := resolveModel(raw)
		if err != nil {
			return types.Type{}, fmt.Errorf("relation %s: %w", n.Name(), err)
		}
		model = resolved
	} else {
		compiled, err := c.Compile(name, n.Header(), target)
		if err != nil {
			return types.Type{}, err
		}
		model = compiled
	}

	var member types.Type
	if s, ok := model.(*Struct); ok {
		member = types.StructOf(s)
	} else {
		member = types.Constructor(model)
	}

	if combine, _ := meta.GetString(types.MetaCombineType); combine == types.CombineMany {
		return types.ArrayOf(member), nil
	}
	return member.Optional(), nil
}

func (c *Compiler) skip(node types.Node) {
	if node == nil {
		c.logger.Debug("skipping nil node")
		return
	}
	c.logger.Debug("skipping unsupported node",
		zap.Stringer("kind", node.Kind()),
		zap.String("node", node.String()))
}

// resolveModel accepts a types.Model as is and turns Go struct types and
// prototypes into plain models
func resolveModel(raw any) (types.Model, error) {
	switch m := raw.(type) {
	case types.Model:
		return m, nil
	case reflect.Type:
		return ModelOf(m)
	}

	t := reflect.TypeOf(raw)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return ModelOf(t)
	}
	return nil, fmt.Errorf("%w: %T", ErrMalformedModel, raw)
}

func relationName(n *types.RelationNode) string {
	meta := n.Meta()
	if name, ok := meta.GetString(types.MetaCombineName); ok {
		return name
	}
	if alias, ok := meta.GetString(types.MetaAlias); ok {
		return alias
	}
	return n.Name()
}

func attributeName(n *types.AttributeNode) string {
	meta := n.Meta()
	if meta.Flag(types.MetaWrapped) {
		return n.Name()
	}
	if alias, ok := meta.GetString(types.MetaAlias); ok {
		return alias
	}
	return n.Name()
}
