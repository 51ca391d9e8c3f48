package commands

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/cli/config"
	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/env"
	"github.com/conduit-lang/relmap/internal/orm/reader"
	"github.com/conduit-lang/relmap/internal/orm/repository"
	"github.com/conduit-lang/relmap/internal/orm/setup"
	"github.com/conduit-lang/relmap/internal/orm/structs"
)

// openRepositories opens every configured repository in name order. On
// failure the repositories opened so far are closed.
func openRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (map[string]setup.Repository, error) {
	names := make([]string, 0, len(cfg.Repositories))
	for name := range cfg.Repositories {
		names = append(names, name)
	}
	sort.Strings(names)

	repos := make(map[string]setup.Repository, len(names))
	for _, name := range names {
		repo, err := repository.Open(ctx, name, cfg.Repositories[name], logger)
		if err != nil {
			for _, opened := range repos {
				_ = opened.Adapter().Close()
			}
			return nil, err
		}
		repos[name] = repo
	}
	return repos, nil
}

// buildEnv finalizes an environment with one implicit relation and one
// reader per dataset. Every relation also gets the commands listed in
// commandTypes.
func buildEnv(ctx context.Context, cfg *config.Config, logger *zap.Logger, commandTypes []string) (*env.Env, error) {
	if len(cfg.Repositories) == 0 {
		return nil, fmt.Errorf("no repositories configured; add one to %s or set DATABASE_URL", config.FileName)
	}

	defs := make([]command.Definition, 0, len(commandTypes))
	for _, name := range commandTypes {
		t, err := command.ParseType(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, command.Definition{Name: name, Type: t})
	}

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closeAll := func() {
		for _, repo := range repos {
			_ = repo.Adapter().Close()
		}
	}

	s := setup.New(repos,
		setup.WithLogger(logger),
		setup.WithNamespace(structs.NewNamespace(cfg.Structs.Namespace)))

	seen := make(map[string]bool)
	for _, key := range sortedKeys(repos) {
		datasets, err := repos[key].Schema(ctx)
		if err != nil {
			closeAll()
			return nil, err
		}
		for _, ds := range datasets {
			if seen[ds] {
				continue
			}
			seen[ds] = true
			s.Mappers(ds, reader.Options{}, nil)
			if len(defs) > 0 {
				s.Commands(ds, defs...)
			}
		}
	}

	e, err := s.Finalize().Run(ctx)
	if err != nil {
		closeAll()
		return nil, err
	}
	return e, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
