package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	items := map[string]int{"tasks": 2, "users": 1}
	r := New("relation", items)

	v, ok := r.Get("users")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.True(t, r.Has("tasks"))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"tasks", "users"}, r.Names())
}

func TestRegistry_IsImmutable(t *testing.T) {
	items := map[string]int{"users": 1}
	r := New("relation", items)

	items["users"] = 99
	items["tasks"] = 2

	v, _ := r.Get("users")
	assert.Equal(t, 1, v)
	assert.False(t, r.Has("tasks"))

	copied := r.ToMap()
	copied["users"] = 5
	v, _ = r.Get("users")
	assert.Equal(t, 1, v)
}

func TestRegistry_Fetch(t *testing.T) {
	r := New("reader", map[string]string{"users": "u"})

	_, err := r.Fetch("tasks")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `reader "tasks"`)
}

func TestRegistry_Each(t *testing.T) {
	r := New("relation", map[string]int{"c": 3, "a": 1, "b": 2})

	var seen []string
	require.NoError(t, r.Each(func(name string, _ int) error {
		seen = append(seen, name)
		return nil
	}))
	assert.Equal(t, []string{"a", "b", "c"}, seen)

	stop := errors.New("stop")
	err := r.Each(func(name string, _ int) error {
		if name == "b" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}

func TestRegistry_Empty(t *testing.T) {
	r := Empty[int]("command")
	assert.True(t, r.IsEmpty())
	assert.Equal(t, "command", r.Kind())
	assert.Empty(t, r.Names())
}
