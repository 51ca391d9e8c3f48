package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"RELATION", "ADAPTER"}, true)
	table.AddRow("users", "sqlite")
	table.AddRow("tasks")
	table.Render()

	want := "RELATION  ADAPTER\n" +
		"────────  ───────\n" +
		"users     sqlite\n" +
		"tasks\n"
	assert.Equal(t, want, buf.String())
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, true).Render()
	assert.Empty(t, buf.String())
}

func TestKeyValueTable_Render(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, "  ", true)
	kv.AddRow("dataset", "users")
	kv.AddRow("struct", "Structs.User")
	kv.Render()

	assert.Equal(t, "  dataset: users\n  struct:  Structs.User\n", buf.String())
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "users", true)
	assert.Equal(t, "users\n─────\n", buf.String())
}
