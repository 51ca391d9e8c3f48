package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"users", "users", 0},
		{"users", "user", 1},
		{"users", "usres", 2},
		{"kitten", "sitting", 3},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
		assert.Equal(t, tt.want, LevenshteinDistance(tt.b, tt.a), "%q -> %q", tt.b, tt.a)
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{"users", "user_roles", "tasks", "Users_archive", "uses"}

	assert.Equal(t, []string{"users", "uses"}, FindSimilar("usrs", candidates, nil))
	assert.Equal(t, []string{"users", "uses"}, FindSimilar("USERS", candidates, nil))
	assert.Empty(t, FindSimilar("USERS", candidates, &FuzzyMatchOptions{CaseSensitive: true, MaxDistance: 1}))
	assert.Equal(t, []string{"users"}, FindSimilar("usrs", candidates, &FuzzyMatchOptions{MaxSuggestions: 1}))
	assert.Empty(t, FindSimilar("projects", candidates, nil))
}
