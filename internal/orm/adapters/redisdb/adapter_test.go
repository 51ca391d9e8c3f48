package redisdb

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

func setupTestRedis(t *testing.T) (*Adapter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mr.HSet("app:users:1", "id", "1", "name", "Jane", "email", "jane@example.com")
	mr.HSet("app:users:2", "id", "2", "name", "John")
	mr.HSet("app:tasks:1", "id", "1", "user_id", "1", "title", "Write docs")
	require.NoError(t, mr.Set("app:users:count", "2"))
	require.NoError(t, mr.Set("other:thing:1", "x"))

	return New(client, "app:", nil), mr
}

func extended(t *testing.T, a *Adapter, name string) *relation.Relation {
	t.Helper()
	rel := relation.Build(name, a, relation.Options{})
	require.NoError(t, a.ExtendRelation(context.Background(), rel))
	return rel
}

func TestAdapter_Datasets(t *testing.T) {
	a, _ := setupTestRedis(t)

	names, err := a.Datasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks", "users"}, names)
	assert.Equal(t, "redis", a.Name())
}

func TestAdapter_ExtendRelation(t *testing.T) {
	a, _ := setupTestRedis(t)
	rel := extended(t, a, "users")

	assert.Equal(t, []string{"id", "email", "name"}, rel.Schema().FieldNames())

	pk, err := rel.Schema().PrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, "id", pk.Name)

	email, _ := rel.Schema().Field("email")
	assert.Equal(t, types.TypeString, email.Type)
	assert.True(t, email.Nullable)

	assert.Equal(t, []string{"all", "where"}, rel.AdapterMethods())
}

func TestAdapter_ReadMethods(t *testing.T) {
	a, _ := setupTestRedis(t)
	rel := extended(t, a, "users")
	ctx := context.Background()

	all, err := rel.Call(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := rel.Call(ctx, "where", map[string]any{"id": 2})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": "2", "name": "John"}}, found)

	_, err = rel.Call(ctx, "where", []string{"id"})
	assert.Error(t, err)
}

func TestAdapter_Commands(t *testing.T) {
	a, mr := setupTestRedis(t)
	rel := extended(t, a, "users")
	ctx := context.Background()

	create, err := a.Command("create", rel, command.Definition{Type: command.Create})
	require.NoError(t, err)
	created, err := create.Call(ctx, map[string]any{"name": "Ada", "email": nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "3", "name": "Ada"}, created)
	assert.Equal(t, "Ada", mr.HGet("app:users:3", "name"))
	assert.Equal(t, "Jane", mr.HGet("app:users:1", "name"))

	created, err = create.Call(ctx, map[string]any{"id": "ada", "name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada", created.(map[string]any)["id"])

	update, err := a.Command("update", rel, command.Definition{Type: command.Update})
	require.NoError(t, err)
	updated, err := update.Call(ctx, map[string]any{"id": 2, "name": "Johnny", "email": "j@example.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "2", "name": "Johnny", "email": "j@example.com"}, updated)
	assert.Equal(t, "Johnny", mr.HGet("app:users:2", "name"))

	missing, err := update.Call(ctx, map[string]any{"id": 99, "name": "Nobody"})
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.False(t, mr.Exists("app:users:99"))

	del, err := a.Command("delete_by_name", rel, command.Definition{
		Type:   command.Delete,
		Key:    "name",
		Result: command.Many,
	})
	require.NoError(t, err)
	deleted, err := del.Call(ctx, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	assert.False(t, mr.Exists("app:users:ada"))
	assert.True(t, mr.Exists("app:users:2"))

	_, err = update.Call(ctx, map[string]any{"id": 2})
	assert.ErrorIs(t, err, command.ErrInvalidInput)
}

func TestRegisteredFactory(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.HSet("events:1", "kind", "signup")

	repo, err := repository.Open(context.Background(), "cache", repository.Config{
		Adapter: AdapterName,
		URL:     "redis://" + mr.Addr() + "/0",
	}, nil)
	require.NoError(t, err)
	defer repo.Adapter().Close()

	names, err := repo.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"events"}, names)

	_, err = repository.Open(context.Background(), "bad", repository.Config{
		Adapter: AdapterName,
		URL:     "://nope",
	}, nil)
	assert.Error(t, err)
}
