package structs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relmap/internal/orm/types"
)

func TestNamespace_Child(t *testing.T) {
	ns := NewNamespace("Structs")

	child := ns.Child("Task")
	assert.Same(t, child, ns.Child("Task"))
	assert.NotSame(t, child, ns.Child("User"))
	assert.Equal(t, "Structs.Task", child.Path())
	assert.NotEqual(t, ns.String(), NewNamespace("Structs").String())

	sealed := NewSealedNamespace("Frozen")
	assert.True(t, sealed.Child("Nested").Sealed())
}

func TestNamespace_Define(t *testing.T) {
	ns := NewNamespace("Structs")

	s, err := ns.Define("User", func(b *Builder) error {
		require.NoError(t, b.Attribute("id", types.Nominal(types.TypeInt)))
		return b.Attribute("name", types.Nominal(types.TypeString))
	})
	require.NoError(t, err)

	found, ok := ns.Lookup("User")
	require.True(t, ok)
	assert.Same(t, s, found)
	assert.Equal(t, []string{"id", "name"}, s.AttributeNames())
}

func TestNamespace_DefineTakenName(t *testing.T) {
	ns := NewNamespace("Structs")

	first, err := ns.Define("User", func(b *Builder) error {
		return b.Attribute("id", types.Nominal(types.TypeInt))
	})
	require.NoError(t, err)
	second, err := ns.Define("User", func(b *Builder) error {
		return b.Attribute("email", types.Nominal(types.TypeString))
	})
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "Structs.User", second.FullName())
	assert.Same(t, first, second.Base())
	assert.Equal(t, []string{"User"}, ns.Names())

	found, _ := ns.Lookup("User")
	assert.Same(t, first, found)

	_, err = NewSealedNamespace("Frozen").Define("User", nil)
	assert.ErrorIs(t, err, ErrNamespaceSealed)
}

func TestNamespace_DefineFailureIsNotPublished(t *testing.T) {
	ns := NewNamespace("Structs")

	_, err := ns.Define("User", func(b *Builder) error {
		require.NoError(t, b.Attribute("id", types.Nominal(types.TypeInt)))
		return b.Attribute("id", types.Nominal(types.TypeInt))
	})
	require.ErrorIs(t, err, ErrDuplicateAttribute)

	_, ok := ns.Lookup("User")
	assert.False(t, ok)
	assert.Empty(t, ns.Names())
}

func TestModelOf(t *testing.T) {
	m, err := ModelOf(&plainUser{})
	require.NoError(t, err)
	assert.Equal(t, "structs.plainUser", m.ModelName())

	_, err = ModelOf(3)
	assert.ErrorIs(t, err, ErrMalformedModel)

	_, err = ModelOf(nil)
	assert.ErrorIs(t, err, ErrMalformedModel)
}
