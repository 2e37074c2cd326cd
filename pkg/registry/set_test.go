package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cone387/cone/pkg/core"
	"github.com/cone387/cone/pkg/registry"
)

func TestSet_Identity(t *testing.T) {
	root := t.TempDir()
	set := registry.NewSet()

	a, err := set.Manager(registry.WithRoot(root), registry.WithPaths("plugins"), registry.WithUniqueKeys("kind"))
	require.NoError(t, err)

	t.Run("same paths and keys share a manager", func(t *testing.T) {
		b, err := set.Manager(registry.WithRoot(root), registry.WithPaths("./plugins/"), registry.WithUniqueKeys("kind"))
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("different keys get their own manager", func(t *testing.T) {
		b, err := set.Manager(registry.WithRoot(root), registry.WithPaths("plugins"), registry.WithUniqueKeys("kind", "version"))
		require.NoError(t, err)
		assert.NotSame(t, a, b)
	})

	t.Run("name identifies managers without paths", func(t *testing.T) {
		x, err := set.Manager(registry.WithName("builtin"), registry.WithUniqueKeys("kind"))
		require.NoError(t, err)
		y, err := set.Manager(registry.WithName("builtin"), registry.WithUniqueKeys("kind"))
		require.NoError(t, err)
		assert.Same(t, x, y)
	})

	assert.Equal(t, 3, set.Len())
	assert.Len(t, set.Managers(), 3)

	set.Reset()
	assert.Zero(t, set.Len())
	c, err := set.Manager(registry.WithRoot(root), registry.WithPaths("plugins"), registry.WithUniqueKeys("kind"))
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestSet_RequiresPathOrName(t *testing.T) {
	_, err := registry.NewSet().Manager(registry.WithUniqueKeys("kind"))
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindConfig))
	assert.Contains(t, err.Error(), "path or name must be provided")
}

func TestSet_PropagatesConfigErrors(t *testing.T) {
	set := registry.NewSet()
	_, err := set.Manager(registry.WithName("nokeys"))
	assert.ErrorIs(t, err, registry.ErrMissingKey)
	assert.Zero(t, set.Len())
}

func TestSplitPaths(t *testing.T) {
	assert.Equal(t, []string{"a", "b/c"}, registry.SplitPaths(" a, ,b/c,"))
	assert.Nil(t, registry.SplitPaths(""))
}
