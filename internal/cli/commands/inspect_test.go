package commands

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/relmap/internal/orm/adapters/memory"
	"github.com/conduit-lang/relmap/internal/orm/env"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/orm/setup"
	"github.com/conduit-lang/relmap/internal/orm/types"
)

// setupProject writes a sqlite database and a relmap.yml pointing at it
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email VARCHAR(255));
		CREATE TABLE tasks (id INTEGER PRIMARY KEY, user_id INTEGER, title TEXT NOT NULL, done BOOLEAN);
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	configPath := filepath.Join(dir, "relmap.yml")
	content := "log:\n  level: error\nstructs:\n  namespace: Models\nrepositories:\n  default:\n    adapter: sqlite\n    url: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestInspect_JSON(t *testing.T) {
	configPath := setupProject(t)

	out, _, err := runRoot(t, "inspect", "--config", configPath, "--format", "json", "--commands", "create,update")
	require.NoError(t, err)

	var reports []RelationReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)

	tasks := reports[0]
	assert.Equal(t, "tasks", tasks.Name)
	assert.Equal(t, "default", tasks.Repository)
	assert.Equal(t, "sqlite", tasks.Adapter)
	assert.Equal(t, "Models.Task", tasks.Struct)
	assert.Equal(t, []string{"all", "where"}, tasks.Methods)
	assert.ElementsMatch(t, []string{"create (create)", "update (update)"}, tasks.Commands)

	users := reports[1]
	assert.Equal(t, "users", users.Name)
	require.Len(t, users.Fields, 3)
	assert.Equal(t, FieldReport{Name: "id", Type: "int!", Primary: true}, users.Fields[0])
	assert.Equal(t, "string?", users.Fields[2].Type)
	assert.Equal(t, 2, users.LoadOrder)
	require.Len(t, users.Attributes, 3)
	assert.Equal(t, "name", users.Attributes[1].Name)
}

func TestInspect_Table(t *testing.T) {
	configPath := setupProject(t)

	out, _, err := runRoot(t, "inspect", "users", "--config", configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "users\n─────\n")
	assert.Contains(t, out, "repository: default (sqlite)")
	assert.Contains(t, out, "struct:     Models.User")
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "PK")
	assert.NotContains(t, out, "tasks")
}

func TestInspect_UnknownRelation(t *testing.T) {
	configPath := setupProject(t)

	_, errOut, err := runRoot(t, "inspect", "--relation", "usres", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, errOut, "Cannot find relation 'usres'.")
	assert.Contains(t, errOut, "Did you mean: users?")
}

func TestInspect_Errors(t *testing.T) {
	configPath := setupProject(t)

	_, _, err := runRoot(t, "inspect", "--config", configPath, "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, errOut, err := runRoot(t, "inspect", "--config", filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, errOut, "CONFIGURATION ERROR")

	_, errOut, err = runRoot(t, "inspect", "--config", configPath, "--commands", "upsert")
	require.Error(t, err)
	assert.Contains(t, errOut, "SETUP FAILED")
}

func TestInspect_NoRepositories(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "relmap.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: error\n"), 0644))
	t.Setenv("DATABASE_URL", "")

	_, _, err := runRoot(t, "inspect", "--config", configPath)
	assert.ErrorContains(t, err, "no repositories configured")
}

// memoryEnv finalizes users, tasks and comments where every relation but
// users belongs_to another
func memoryEnv(t *testing.T, declare func(s *setup.Setup)) *env.Env {
	t.Helper()
	store := memory.New(nil)
	store.AddDataset("users", []*schema.Field{{Name: "id", Type: types.TypeInt, Primary: true}})
	store.AddDataset("tasks", []*schema.Field{
		{Name: "id", Type: types.TypeInt, Primary: true},
		memory.Field("user_id", types.TypeInt),
	})
	store.AddDataset("comments", []*schema.Field{
		{Name: "id", Type: types.TypeInt, Primary: true},
		memory.Field("task_id", types.TypeInt),
	})

	s := setup.New(map[string]setup.Repository{"default": repository.New("default", store)})
	declare(s)
	e, err := s.Finalize().Run(context.Background())
	require.NoError(t, err)
	return e
}

func TestInspectRelations_Dependencies(t *testing.T) {
	e := memoryEnv(t, func(s *setup.Setup) {
		s.Relation("comments", relation.Options{}, func(b *relation.Builder) {
			b.BelongsTo("task", "tasks", "task_id")
		})
		s.Relation("tasks", relation.Options{}, func(b *relation.Builder) {
			b.BelongsTo("user", "users", "user_id")
		})
	})

	reports, err := inspectRelations(e, e.Relations().Names(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, reports, 3)

	comments, tasks, users := reports[0], reports[1], reports[2]
	assert.Equal(t, []string{"tasks"}, comments.DependsOn)
	assert.Empty(t, comments.ReferencedBy)
	assert.Equal(t, []string{"users"}, tasks.DependsOn)
	assert.Equal(t, []string{"comments"}, tasks.ReferencedBy)
	assert.Empty(t, users.DependsOn)
	assert.Equal(t, []string{"tasks"}, users.ReferencedBy)

	assert.Equal(t, 1, users.LoadOrder)
	assert.Equal(t, 2, tasks.LoadOrder)
	assert.Equal(t, 3, comments.LoadOrder)

	var out bytes.Buffer
	require.NoError(t, NewTableFormatter(&out).Format(reports[1:2]))
	assert.Contains(t, out.String(), "depends on:    users")
	assert.Contains(t, out.String(), "referenced by: comments")
	assert.Contains(t, out.String(), "load order:    2")
}

func TestInspectRelations_CycleLeavesOrderOut(t *testing.T) {
	e := memoryEnv(t, func(s *setup.Setup) {
		s.Relation("users", relation.Options{}, func(b *relation.Builder) {
			b.Attribute("task_id", types.TypeInt).BelongsTo("task", "tasks", "task_id")
		})
		s.Relation("tasks", relation.Options{}, func(b *relation.Builder) {
			b.BelongsTo("user", "users", "user_id")
		})
	})

	core, logs := observer.New(zapcore.WarnLevel)
	reports, err := inspectRelations(e, []string{"tasks", "users"}, zap.New(core))
	require.NoError(t, err)

	for _, r := range reports {
		assert.Zero(t, r.LoadOrder, r.Name)
	}
	entries := logs.FilterMessage("belongs_to cycle").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []any{"tasks", "users"}, entries[0].ContextMap()["relations"])
}
