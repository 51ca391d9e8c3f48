package sqldb

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

// setupTestDB creates an in-memory database with users and tasks tables
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email VARCHAR(255) UNIQUE
		);
		CREATE TABLE tasks (
			id INTEGER PRIMARY KEY,
			user_id BIGINT NOT NULL,
			title TEXT,
			done BOOLEAN
		);
		INSERT INTO users (name, email) VALUES ('Jane', 'jane@example.com');
	`)
	require.NoError(t, err)
	return db
}

func extended(t *testing.T, a *Adapter, name string) *relation.Relation {
	t.Helper()
	rel := relation.Build(name, a, relation.Options{})
	require.NoError(t, a.ExtendRelation(context.Background(), rel))
	return rel
}

func TestSQLite_Datasets(t *testing.T) {
	a := New(setupTestDB(t), SQLite{}, nil)

	names, err := a.Datasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks", "users"}, names)
	assert.Equal(t, "sqlite", a.Name())
}

func TestSQLite_ExtendRelation(t *testing.T) {
	a := New(setupTestDB(t), SQLite{}, nil)
	rel := extended(t, a, "users")

	assert.Equal(t, []string{"id", "name", "email"}, rel.Schema().FieldNames())

	id, _ := rel.Schema().Field("id")
	assert.True(t, id.Primary)
	assert.False(t, id.Nullable)
	assert.Equal(t, types.TypeInt, id.Type)

	name, _ := rel.Schema().Field("name")
	assert.Equal(t, types.TypeText, name.Type)
	assert.False(t, name.Nullable)

	email, _ := rel.Schema().Field("email")
	assert.Equal(t, types.TypeString, email.Type)
	assert.True(t, email.Nullable)

	assert.Equal(t, []string{"all", "where"}, rel.AdapterMethods())
}

func TestSQLite_DeclaredFieldsWin(t *testing.T) {
	a := New(setupTestDB(t), SQLite{}, nil)
	rel := relation.Build("tasks", a, relation.Options{})
	require.NoError(t, relation.Customize(rel, func(b *relation.Builder) {
		b.Attribute("done", types.TypeBool, relation.Nullable(), relation.Alias("completed"))
	}))
	require.NoError(t, a.ExtendRelation(context.Background(), rel))

	assert.Equal(t, []string{"done", "id", "user_id", "title"}, rel.Schema().FieldNames())
	done, _ := rel.Schema().Field("done")
	assert.Equal(t, "completed", done.Alias)
}

func TestSQLite_ReadMethods(t *testing.T) {
	a := New(setupTestDB(t), SQLite{}, nil)
	rel := extended(t, a, "users")
	ctx := context.Background()

	all, err := rel.Call(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"id": int64(1), "name": "Jane", "email": "jane@example.com"},
	}, all)

	none, err := rel.Call(ctx, "where", map[string]any{"name": "John"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = rel.Call(ctx, "where")
	assert.Error(t, err)
}

func TestSQLite_Commands(t *testing.T) {
	a := New(setupTestDB(t), SQLite{}, nil)
	rel := extended(t, a, "users")
	ctx := context.Background()

	create, err := a.Command("create", rel, command.Definition{Type: command.Create})
	require.NoError(t, err)
	created, err := create.Call(ctx, map[string]any{"name": "John", "nickname": "JJ"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(2), "name": "John", "email": nil}, created)

	update, err := a.Command("rename", rel, command.Definition{
		Type:       command.Update,
		Attributes: []string{"id", "name"},
	})
	require.NoError(t, err)
	updated, err := update.Call(ctx, map[string]any{"id": 2, "name": "Johnny", "email": "ignored@example.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(2), "name": "Johnny", "email": nil}, updated)

	_, err = update.Call(ctx, map[string]any{"id": 2})
	assert.ErrorIs(t, err, command.ErrInvalidInput)

	del, err := a.Command("delete", rel, command.Definition{Type: command.Delete, Result: command.Many})
	require.NoError(t, err)
	deleted, err := del.Call(ctx, map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Len(t, deleted, 1)

	missing, err := update.Call(ctx, map[string]any{"id": 99, "name": "Nobody"})
	require.NoError(t, err)
	assert.Nil(t, missing)

	rows, err := rel.Call(ctx, "where", map[string]any{"id": 2})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSQLite_ConstraintErrors(t *testing.T) {
	a := New(setupTestDB(t), SQLite{}, nil)
	rel := extended(t, a, "users")
	ctx := context.Background()

	create, err := a.Command("create", rel, command.Definition{Type: command.Create})
	require.NoError(t, err)

	_, err = create.Call(ctx, map[string]any{"name": "Jane 2", "email": "jane@example.com"})
	assert.ErrorIs(t, err, ErrUniqueViolation)

	_, err = create.Call(ctx, map[string]any{"email": "anon@example.com"})
	assert.ErrorIs(t, err, ErrNotNullViolation)

	all, err := rel.Call(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegisteredFactories(t *testing.T) {
	ctx := context.Background()

	repo, err := repository.Open(ctx, "local", repository.Config{
		Adapter: "sqlite",
		URL:     "file:factory?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	defer repo.Adapter().Close()
	assert.Equal(t, "sqlite", repo.Adapter().Name())

	repo2, err := repository.Open(ctx, "generic", repository.Config{
		Adapter: "sql",
		URL:     "file:generic?mode=memory&cache=shared",
		Options: map[string]any{"dialect": "sqlite3"},
	}, nil)
	require.NoError(t, err)
	defer repo2.Adapter().Close()

	_, err = repository.Open(ctx, "broken", repository.Config{Adapter: "sql", URL: "x"}, nil)
	assert.Error(t, err)

	_, err = repository.Open(ctx, "nourl", repository.Config{Adapter: "sqlite"}, nil)
	assert.Error(t, err)
}
