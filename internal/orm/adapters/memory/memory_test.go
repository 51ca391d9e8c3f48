package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

func newUsers(t *testing.T) (*Adapter, *relation.Relation) {
	t.Helper()
	a := New(nil)
	a.AddDataset("users", []*schema.Field{
		{Name: "id", Type: types.TypeInt, Primary: true},
		Field("name", types.TypeString),
	},
		map[string]any{"id": 1, "name": "Jane"},
		map[string]any{"id": 2, "name": "John"},
	)

	rel := relation.Build("users", a, relation.Options{})
	require.NoError(t, a.ExtendRelation(context.Background(), rel))
	return a, rel
}

func TestAdapter_Datasets(t *testing.T) {
	a := New(nil)
	a.AddDataset("tasks", nil)
	a.AddDataset("users", nil)

	names, err := a.Datasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks", "users"}, names)
	assert.Equal(t, "memory", a.Name())
}

func TestAdapter_ExtendRelation(t *testing.T) {
	_, rel := newUsers(t)

	assert.Equal(t, []string{"id", "name"}, rel.Schema().FieldNames())
	assert.Equal(t, []string{"all", "where"}, rel.AdapterMethods())
	assert.Empty(t, rel.Methods())

	all, err := rel.Call(context.Background(), "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := rel.Call(context.Background(), "where", map[string]any{"name": "John"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": 2, "name": "John"}}, found)

	_, err = rel.Call(context.Background(), "where", "name = 'John'")
	assert.Error(t, err)
}

func TestAdapter_DeclaredFieldsWin(t *testing.T) {
	a := New(nil)
	a.AddDataset("users", []*schema.Field{Field("name", types.TypeString)})

	rel := relation.Build("users", a, relation.Options{})
	require.NoError(t, relation.Customize(rel, func(b *relation.Builder) {
		b.Attribute("name", types.TypeText, relation.Nullable())
	}))
	require.NoError(t, a.ExtendRelation(context.Background(), rel))

	f, _ := rel.Schema().Field("name")
	assert.Equal(t, types.TypeText, f.Type)
	assert.True(t, f.Nullable)
}

func TestAdapter_Commands(t *testing.T) {
	a, rel := newUsers(t)
	ctx := context.Background()

	create, err := a.Command("create", rel, command.Definition{Type: command.Create})
	require.NoError(t, err)
	created, err := create.Call(ctx, map[string]any{"name": "Ada", "admin": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(3), "name": "Ada"}, created)

	update, err := a.Command("update", rel, command.Definition{Type: command.Update})
	require.NoError(t, err)
	updated, err := update.Call(ctx, map[string]any{"id": 3, "name": "Ada L."})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(3), "name": "Ada L."}, updated)

	del, err := a.Command("delete", rel, command.Definition{Type: command.Delete, Result: command.Many})
	require.NoError(t, err)
	deleted, err := del.Call(ctx, map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Len(t, deleted, 1)

	assert.Equal(t, []map[string]any{
		{"id": 2, "name": "John"},
		{"id": int64(3), "name": "Ada L."},
	}, a.Rows("users"))

	assert.Equal(t, "update", update.Name())
	assert.Equal(t, "users", update.Relation())
	assert.Equal(t, command.Update, update.Type())
}

func TestAdapter_CommandErrors(t *testing.T) {
	a := New(nil)
	rel := relation.Build("logs", a, relation.Options{})
	require.NoError(t, a.ExtendRelation(context.Background(), rel))

	_, err := a.Command("delete", rel, command.Definition{Type: command.Delete})
	assert.Error(t, err)

	_, err = a.Command("upsert", rel, command.Definition{Type: command.Type(9)})
	assert.Error(t, err)
}

func TestRegisteredFactory(t *testing.T) {
	repo, err := repository.Open(context.Background(), "default", repository.Config{
		Adapter: AdapterName,
		Options: map[string]any{"datasets": []any{"users", "tasks"}},
	}, nil)
	require.NoError(t, err)

	names, err := repo.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks", "users"}, names)

	_, err = repository.Open(context.Background(), "default", repository.Config{
		Adapter: AdapterName,
		Options: map[string]any{"datasets": "users"},
	}, nil)
	assert.Error(t, err)
}

func TestAdapter_CreateAfterSparseKeys(t *testing.T) {
	a := New(nil)
	a.AddDataset("users", []*schema.Field{
		{Name: "id", Type: types.TypeInt, Primary: true},
		Field("name", types.TypeString),
	},
		map[string]any{"id": 1, "name": "Jane"},
		map[string]any{"id": 5, "name": "John"},
	)
	rel := relation.Build("users", a, relation.Options{})
	require.NoError(t, a.ExtendRelation(context.Background(), rel))

	create, err := a.Command("create", rel, command.Definition{Type: command.Create})
	require.NoError(t, err)
	ctx := context.Background()

	created, err := create.Call(ctx, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), created.(map[string]any)["id"])

	_, err = create.Call(ctx, map[string]any{"id": 10, "name": "Grace"})
	require.NoError(t, err)

	created, err = create.Call(ctx, map[string]any{"name": "Linus"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.(map[string]any)["id"])
}
