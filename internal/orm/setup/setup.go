// Package setup collects relation, reader and command declarations and
// finalizes them into an env.Env.
//
//	s := setup.New(map[string]setup.Repository{"default": repo})
//	s.Relation("tasks", relation.Options{}, func(b *relation.Builder) {
//		b.BelongsTo("user", "users", "user_id")
//	})
//	s.Mappers("tasks", reader.Options{}, nil)
//	s.Commands("tasks", command.Definition{Name: "create", Type: command.Create})
//	environment, err := s.Finalize().Run(ctx)
package setup

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/env"
	"github.com/conduit-lang/relmap/internal/orm/reader"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
	"github.com/conduit-lang/relmap/internal/orm/structs"
)

// Repository is a configured datastore; *repository.Repository implements it
type Repository = env.Repository

type relationDecl struct {
	name      string
	options   relation.Options
	customize relation.Customization
}

type mapperDecl struct {
	name      string
	options   reader.Options
	customize reader.Customization
}

type commandDecl struct {
	relation    string
	definitions []command.Definition
}

// Setup accumulates declarations. It is not safe for concurrent use.
type Setup struct {
	repositories map[string]Repository
	relations    []relationDecl
	relIndex     map[string]int
	mappers      []mapperDecl
	mapIndex     map[string]int
	commands     []commandDecl
	cmdIndex     map[string]int

	logger    *zap.Logger
	compiler  *structs.Compiler
	namespace *structs.Namespace
}

// Option configures a Setup
type Option func(*Setup)

// WithLogger sets the logger used while finalizing
func WithLogger(logger *zap.Logger) Option {
	return func(s *Setup) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCompiler sets the struct compiler readers compile their headers with
func WithCompiler(c *structs.Compiler) Option {
	return func(s *Setup) { s.compiler = c }
}

// WithNamespace sets the namespace reader structs are defined in
func WithNamespace(ns *structs.Namespace) Option {
	return func(s *Setup) { s.namespace = ns }
}

// New creates a setup over repositories keyed by name
func New(repositories map[string]Repository, opts ...Option) *Setup {
	s := &Setup{
		repositories: make(map[string]Repository, len(repositories)),
		relIndex:     make(map[string]int),
		mapIndex:     make(map[string]int),
		cmdIndex:     make(map[string]int),
		logger:       zap.NewNop(),
	}
	for name, repo := range repositories {
		s.repositories[name] = repo
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.compiler == nil {
		s.compiler = structs.NewCompiler(structs.WithLogger(s.logger))
	}
	if s.namespace == nil {
		s.namespace = structs.NewNamespace("Structs")
	}
	return s
}

// Relation declares a relation. Declaring the same name again replaces the
// earlier declaration but keeps its position.
func (s *Setup) Relation(name string, opts relation.Options, customize relation.Customization) *Setup {
	decl := relationDecl{name: name, options: opts, customize: customize}
	if i, ok := s.relIndex[name]; ok {
		s.relations[i] = decl
		return s
	}
	s.relIndex[name] = len(s.relations)
	s.relations = append(s.relations, decl)
	return s
}

// Mappers declares a reader. Declaring the same name again replaces the
// earlier declaration but keeps its position.
func (s *Setup) Mappers(name string, opts reader.Options, customize reader.Customization) *Setup {
	decl := mapperDecl{name: name, options: opts, customize: customize}
	if i, ok := s.mapIndex[name]; ok {
		s.mappers[i] = decl
		return s
	}
	s.mapIndex[name] = len(s.mappers)
	s.mappers = append(s.mappers, decl)
	return s
}

// Commands declares commands for a relation. Repeated calls add to the same
// relation.
func (s *Setup) Commands(relationName string, defs ...command.Definition) *Setup {
	if i, ok := s.cmdIndex[relationName]; ok {
		s.commands[i].definitions = append(s.commands[i].definitions, defs...)
		return s
	}
	s.cmdIndex[relationName] = len(s.commands)
	s.commands = append(s.commands, commandDecl{relation: relationName, definitions: defs})
	return s
}

// Finalize returns the one-shot finalizer for the declarations made so far
func (s *Setup) Finalize() *Finalize {
	f := &Finalize{
		repositories:       s.repositories,
		relations:          append([]relationDecl(nil), s.relations...),
		mappers:            append([]mapperDecl(nil), s.mappers...),
		commands:           make([]commandDecl, len(s.commands)),
		logger:             s.logger,
		compiler:           s.compiler,
		namespace:          s.namespace,
		adapterRelationMap: make(map[string]repository.Adapter),
	}
	for i, decl := range s.commands {
		f.commands[i] = commandDecl{
			relation:    decl.relation,
			definitions: append([]command.Definition(nil), decl.definitions...),
		}
	}
	return f
}
