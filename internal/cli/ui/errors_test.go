package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatError(t *testing.T) {
	out := FormatError(ErrorOptions{
		Context:      "relation not found",
		Problem:      "Cannot find relation 'usr'.",
		Cause:        errors.New("registry: not found"),
		Suggestions:  []string{"users", "user"},
		HelpCommands: []string{"List relations: relmap inspect"},
		NoColor:      true,
	})

	assert.Contains(t, out, "❌ RELATION NOT FOUND: Cannot find relation 'usr'.")
	assert.Contains(t, out, "   registry: not found\n")
	assert.Contains(t, out, "Did you mean: users, user?")
	assert.Contains(t, out, "→ List relations: relmap inspect")
}

func TestFormatError_Levels(t *testing.T) {
	assert.Equal(t, "⚠️ careful\n", Warning("careful", true))
	assert.Equal(t, "ℹ️ note\n", FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: "note", NoColor: true}))
	assert.Equal(t, "❌ broken\n", FormatError(ErrorOptions{Problem: "broken", NoColor: true}))
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	WriteError(&buf, ErrorOptions{Problem: "broken", NoColor: true})
	assert.Equal(t, "❌ broken\n", buf.String())
}

func TestFormatSuccess(t *testing.T) {
	assert.Equal(t, "✓ done", FormatSuccess("done", true))
}

func TestRelationNotFoundError(t *testing.T) {
	out := RelationNotFoundError("usrs", []string{"users", "tasks", "projects"}, true)
	assert.Contains(t, out, "Cannot find relation 'usrs'.")
	assert.Contains(t, out, "Did you mean: users?")
	assert.Contains(t, out, "relmap inspect")

	out = RelationNotFoundError("zzzzzzzz", []string{"users"}, true)
	assert.NotContains(t, out, "Did you mean")
}

func TestConfigAndFinalizeErrors(t *testing.T) {
	out := ConfigError(errors.New("repositories.default.adapter is required"), true)
	assert.Contains(t, out, "CONFIGURATION ERROR")
	assert.Contains(t, out, "repositories.default.adapter is required")

	out = FinalizeError(errors.New("finalize tasks: missing users"), true)
	assert.Contains(t, out, "SETUP FAILED")
	assert.Contains(t, out, "finalize tasks: missing users")
}
