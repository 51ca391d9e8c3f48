package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/relation"
)

type stubAdapter struct {
	datasets []string
	err      error
}

func (a *stubAdapter) Name() string { return "stub" }
func (a *stubAdapter) Datasets(context.Context) ([]string, error) {
	return a.datasets, a.err
}
func (a *stubAdapter) ExtendRelation(context.Context, *relation.Relation) error { return nil }
func (a *stubAdapter) Command(string, *relation.Relation, command.Definition) (command.Command, error) {
	return nil, nil
}
func (a *stubAdapter) Close() error { return nil }

func TestRepository_Schema(t *testing.T) {
	repo := New("default", &stubAdapter{datasets: []string{"users", "tasks"}})

	datasets, err := repo.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks", "users"}, datasets)
	assert.Equal(t, "default", repo.Name())

	boom := errors.New("boom")
	_, err = New("broken", &stubAdapter{err: boom}).Schema(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "repository broken")
}

func TestOpen(t *testing.T) {
	var gotURL string
	Register("stub", func(ctx context.Context, cfg Config, logger *zap.Logger) (Adapter, error) {
		gotURL = cfg.URL
		return &stubAdapter{}, nil
	})

	repo, err := Open(context.Background(), "default", Config{Adapter: "stub", URL: "stub://"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", repo.Adapter().Name())
	assert.Equal(t, "stub://", gotURL)
	assert.Contains(t, Adapters(), "stub")
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), "default", Config{}, nil)
	assert.Error(t, err)

	_, err = Open(context.Background(), "default", Config{Adapter: "cassandra"}, nil)
	var unknown *UnknownAdapterError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "cassandra", unknown.Type)

	boom := errors.New("connection refused")
	Register("failing", func(context.Context, Config, *zap.Logger) (Adapter, error) {
		return nil, boom
	})
	_, err = Open(context.Background(), "default", Config{Adapter: "failing"}, zap.NewNop())
	assert.ErrorIs(t, err, boom)
}
