package setup

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/env"
	"github.com/conduit-lang/relmap/internal/orm/reader"
	"github.com/conduit-lang/relmap/internal/orm/registry"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/orm/structs"
)

// Finalize turns declarations into an environment. It runs once.
type Finalize struct {
	repositories map[string]Repository
	relations    []relationDecl
	mappers      []mapperDecl
	commands     []commandDecl

	logger    *zap.Logger
	compiler  *structs.Compiler
	namespace *structs.Namespace

	// relation name -> adapter that built it; only lives for one Run
	adapterRelationMap map[string]repository.Adapter
	done               bool
}

// Run builds every relation, then finalizes them together, then builds
// readers and commands. Any error aborts the run; no partial environment is
// returned.
func (f *Finalize) Run(ctx context.Context) (*env.Env, error) {
	if f.done {
		return nil, ErrAlreadyRun
	}
	f.done = true
	defer func() { f.adapterRelationMap = nil }()

	datasets, err := f.loadDatasets(ctx)
	if err != nil {
		return nil, err
	}

	relations, err := f.loadRelations(ctx, datasets)
	if err != nil {
		return nil, err
	}

	readers, err := f.loadReaders(relations)
	if err != nil {
		return nil, err
	}

	commands, err := f.loadCommands(relations)
	if err != nil {
		return nil, err
	}

	f.logger.Info("setup finalized",
		zap.Int("repositories", len(f.repositories)),
		zap.Int("relations", relations.Len()),
		zap.Int("readers", readers.Len()),
		zap.Int("commands", commands.Count()))

	return env.New(f.repositories, relations, readers, commands), nil
}

type repositoryDatasets struct {
	repository string
	names      []string
}

func (f *Finalize) loadDatasets(ctx context.Context) ([]repositoryDatasets, error) {
	keys := make([]string, 0, len(f.repositories))
	for key := range f.repositories {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]repositoryDatasets, 0, len(keys))
	for _, key := range keys {
		names, err := f.repositories[key].Schema(ctx)
		if err != nil {
			return nil, fmt.Errorf("load datasets of repository %s: %w", key, err)
		}
		f.logger.Debug("loaded datasets", zap.String("repository", key), zap.Strings("datasets", names))
		out = append(out, repositoryDatasets{repository: key, names: names})
	}
	return out, nil
}

func (f *Finalize) loadRelations(ctx context.Context, datasets []repositoryDatasets) (*relation.Registry, error) {
	relations := make(map[string]*relation.Relation)

	for _, decl := range f.relations {
		rel, err := f.buildRelation(ctx, decl.name, decl.options, decl.customize)
		if err != nil {
			return nil, err
		}
		relations[decl.name] = rel
	}

	for _, ds := range datasets {
		for _, name := range ds.names {
			if _, declared := relations[name]; declared {
				continue
			}
			rel, err := f.buildRelation(ctx, name, relation.Options{Repository: ds.repository}, nil)
			if err != nil {
				return nil, err
			}
			relations[name] = rel
		}
	}

	// every relation exists before any is finalized
	reg := relation.NewRegistry(relations)
	if err := reg.FinalizeAll(); err != nil {
		return nil, err
	}

	f.logger.Debug("relations finalized", zap.Strings("relations", reg.Names()))
	return reg, nil
}

func (f *Finalize) buildRelation(ctx context.Context, name string, opts relation.Options, customize relation.Customization) (*relation.Relation, error) {
	repoName := opts.RepositoryName()
	fail := func(err error) (*relation.Relation, error) {
		return nil, &RelationResolutionError{Relation: name, Repository: repoName, Err: err}
	}

	repo, ok := f.repositories[repoName]
	if !ok || repo == nil {
		return fail(ErrRepositoryNotFound)
	}
	adapter := repo.Adapter()
	if adapter == nil {
		return fail(ErrNoAdapter)
	}

	rel := relation.Build(name, adapter, opts)
	if err := relation.Customize(rel, customize); err != nil {
		return nil, err
	}
	if err := adapter.ExtendRelation(ctx, rel); err != nil {
		return fail(err)
	}
	if err := schema.Validate(rel.Schema()); err != nil {
		return fail(err)
	}
	f.adapterRelationMap[name] = adapter

	f.logger.Debug("built relation",
		zap.String("relation", name),
		zap.String("repository", repoName),
		zap.String("adapter", adapter.Name()),
		zap.Strings("methods", rel.Methods()))
	return rel, nil
}

func (f *Finalize) loadReaders(relations *relation.Registry) (*reader.Registry, error) {
	if len(f.adapterRelationMap) == 0 {
		return reader.EmptyRegistry(), nil
	}

	factory := reader.NewFactory(relations, f.compiler, f.namespace)
	readers := make(map[string]*reader.Reader, len(f.mappers))
	for _, decl := range f.mappers {
		r, err := factory.Build(decl.name, decl.options, decl.customize)
		if err != nil {
			return nil, err
		}
		readers[decl.name] = r
	}
	return reader.NewRegistry(readers), nil
}

func (f *Finalize) loadCommands(relations *relation.Registry) (*command.Registry, error) {
	if len(f.adapterRelationMap) == 0 {
		return command.EmptyRegistry(), nil
	}

	byRelation := make(map[string]*command.Commands, len(f.commands))
	for _, decl := range f.commands {
		adapter, ok := f.adapterRelationMap[decl.relation]
		rel, found := relations.Get(decl.relation)
		if !ok || !found {
			return nil, &CommandBuildError{Relation: decl.relation, Err: registry.ErrNotFound}
		}

		cmds := make(map[string]command.Command, len(decl.definitions))
		for _, def := range decl.definitions {
			cmd, err := adapter.Command(def.Name, rel, def)
			if err == nil && cmd == nil {
				err = ErrNoCommand
			}
			if err != nil {
				return nil, &CommandBuildError{Relation: decl.relation, Command: def.Name, Err: err}
			}
			cmds[def.Name] = cmd
		}
		byRelation[decl.relation] = command.NewCommands(cmds)
	}
	return command.NewRegistry(byRelation), nil
}
