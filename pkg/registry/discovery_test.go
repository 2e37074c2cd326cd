package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cone387/cone/pkg/core"
	"github.com/cone387/cone/pkg/registry"
)

var catalog = registry.Catalog{}.Add(
	registry.Record("echo"),
	registry.Record("http"),
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func pluginManager(t *testing.T, root string, opts ...registry.Option) *registry.Manager {
	t.Helper()
	base := []registry.Option{
		registry.WithRoot(root),
		registry.WithUniqueKeys("kind"),
		registry.WithLoader(registry.ManifestLoader{Classes: catalog}),
	}
	m, err := registry.New(append(base, opts...)...)
	require.NoError(t, err)
	return m
}

func keyStrings(t *testing.T, m *registry.Manager) []string {
	t.Helper()
	keys, err := m.Keys(context.Background())
	require.NoError(t, err)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func TestDiscovery_Lazy(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "plugins", "http.yaml"), "class: http\nkeys: {kind: http}\n")
	writeFile(t, filepath.Join(root, "plugins", "nested", "echo.yml"), "class: echo\ngenerate: [a, b]\n")
	writeFile(t, filepath.Join(root, "plugins", "json.json"), `{"class": "echo", "keys": {"kind": "j"}}`)
	writeFile(t, filepath.Join(root, "plugins", "notes.txt"), "class: echo\nkeys: {kind: txt}\n")

	m := pluginManager(t, root, registry.WithPaths("plugins"))

	assert.False(t, m.Loaded())
	assert.Zero(t, m.Len())

	assert.Equal(t, []string{"a", "b", "http", "j"}, keyStrings(t, m))
	assert.True(t, m.Loaded())

	e, err := m.Get(context.Background(), registry.KeyOf("http"))
	require.NoError(t, err)
	assert.Equal(t, "plugins/http.yaml", e.Source)
}

func TestDiscovery_MultiDocument(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "all.yaml"), "class: http\nkeys: {kind: http}\noverwritable: true\n---\nclass: echo\ngenerate: [x]\n")

	m := pluginManager(t, root, registry.WithPaths("all.yaml"))

	assert.Equal(t, []string{"http", "x"}, keyStrings(t, m))
	e, err := m.Get(context.Background(), registry.KeyOf("http"))
	require.NoError(t, err)
	assert.True(t, e.Overwritable)
}

func TestDiscovery_TupleGenerator(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "echo.yaml"), "class: echo\ngenerate: [[a, 1], [b, 2]]\n")

	m, err := registry.New(
		registry.WithRoot(root),
		registry.WithPaths("p"),
		registry.WithUniqueKeys("kind", "version"),
		registry.WithLoader(registry.ManifestLoader{Classes: catalog}),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"(a, 1)", "(b, 2)"}, keyStrings(t, m))
}

func TestDiscovery_SkipsUnderscore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "plugins", "_draft.yaml"), "class: echo\nkeys: {kind: draft}\n")
	writeFile(t, filepath.Join(root, "plugins", "ok.yaml"), "class: echo\nkeys: {kind: ok}\n")

	m := pluginManager(t, root, registry.WithPaths("plugins"))

	assert.Equal(t, []string{"ok"}, keyStrings(t, m))
	assert.False(t, m.Manageable(filepath.Join(root, "plugins", "_draft.yaml")))
}

func TestDiscovery_Patterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "a.plugin"), "class: echo\nkeys: {kind: a}\n")
	writeFile(t, filepath.Join(root, "p", "b.yaml"), "class: echo\nkeys: {kind: b}\n")
	writeFile(t, filepath.Join(root, "p", "deep", "c.yaml"), "class: echo\nkeys: {kind: c}\n")

	m := pluginManager(t, root, registry.WithPaths("p"), registry.WithPatterns("*.plugin", "p/deep/**/*.yaml"))

	assert.Equal(t, []string{"a", "c"}, keyStrings(t, m))

	units, err := m.Discover()
	require.NoError(t, err)
	assert.Len(t, units, 2)
}

func TestDiscovery_MissingPath(t *testing.T) {
	m := pluginManager(t, t.TempDir(), registry.WithPaths("does-not-exist"))

	assert.Empty(t, keyStrings(t, m))
	assert.True(t, m.Loaded())
}

func TestDiscovery_OutsideRoot(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "elsewhere", "x.yaml")
	writeFile(t, outside, "class: echo\nkeys: {kind: x}\n")

	t.Run("file", func(t *testing.T) {
		m := pluginManager(t, filepath.Join(base, "root"), registry.WithPaths(outside))
		err := m.Load(context.Background())
		assert.ErrorIs(t, err, registry.ErrOutsideRoot)
		assert.True(t, core.IsKind(err, core.KindConfig))
	})

	t.Run("directory", func(t *testing.T) {
		m := pluginManager(t, filepath.Join(base, "root"), registry.WithPaths(filepath.Dir(outside)))
		err := m.Load(context.Background())
		assert.ErrorIs(t, err, registry.ErrOutsideRoot)
	})
}

func TestDiscovery_BrokenUnitsSkippedInDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "broken.yaml"), "class: [unterminated\n")
	writeFile(t, filepath.Join(root, "p", "unknown.yaml"), "class: nobody\nkeys: {kind: u}\n")
	writeFile(t, filepath.Join(root, "p", "good.yaml"), "class: echo\nkeys: {kind: good}\n")

	m := pluginManager(t, root, registry.WithPaths("p"))

	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, []string{"good"}, keyStrings(t, m))
}

func TestDiscovery_BrokenFileFails(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "broken.yaml"), "class: [unterminated\n")

	m := pluginManager(t, root, registry.WithPaths("broken.yaml"))

	err := m.Load(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindScan))

	// A failed pass is reported again on the next lookup.
	err = m.Load(context.Background())
	assert.True(t, core.IsKind(err, core.KindScan))
	assert.False(t, m.Loaded())
}

func TestLoad_CancelledThenRetried(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "a.yaml"), "class: echo\nkeys: {kind: a}\n")

	m := pluginManager(t, root, registry.WithPaths("p"))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Get(cancelled, registry.KeyOf("a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.Loaded())

	e, err := m.Get(context.Background(), registry.KeyOf("a"))
	require.NoError(t, err)
	assert.Equal(t, "echo", e.Class.Name())
	assert.True(t, m.Loaded())
}

func TestLoad_RetryAfterFix(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "a.yaml"), "class: echo\nkeys: {kind: a}\n")
	fix := filepath.Join(root, "fix.yaml")
	writeFile(t, fix, "class: [unterminated\n")

	m := pluginManager(t, root, registry.WithPaths("p", "fix.yaml"))

	for range 2 {
		_, err := m.Get(ctx, registry.KeyOf("a"))
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindScan), "every lookup reports the failure, got %v", err)
	}

	writeFile(t, fix, "class: http\nkeys: {kind: fixed}\n")

	// a.yaml already loaded and is not registered twice.
	assert.Equal(t, []string{"a", "fixed"}, keyStrings(t, m))
}

func TestLoad_OutsideRootStaysFatal(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "elsewhere", "x.yaml")
	writeFile(t, outside, "class: echo\nkeys: {kind: x}\n")

	m := pluginManager(t, filepath.Join(base, "root"), registry.WithPaths(outside))

	for range 2 {
		_, err := m.Keys(context.Background())
		assert.ErrorIs(t, err, registry.ErrOutsideRoot)
	}
}

func TestDiscovery_DuplicateAcrossUnitsFails(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "a.yaml"), "class: echo\nkeys: {kind: same}\n")
	writeFile(t, filepath.Join(root, "p", "b.yaml"), "class: http\nkeys: {kind: same}\n")

	m := pluginManager(t, root, registry.WithPaths("p"))

	err := m.Load(context.Background())
	assert.ErrorIs(t, err, registry.ErrDuplicateKey)
}

func TestRegisterFrom(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "first", "a.yaml"), "class: echo\nkeys: {kind: a}\n")
	writeFile(t, filepath.Join(root, "second", "b.yaml"), "class: echo\nkeys: {kind: b}\n")

	m := pluginManager(t, root)

	t.Run("before load the path waits for discovery", func(t *testing.T) {
		require.NoError(t, m.RegisterFrom(ctx, "first"))
		assert.Zero(t, m.Len())
		assert.Equal(t, []string{"a"}, keyStrings(t, m))
	})

	t.Run("after load the path is scanned right away", func(t *testing.T) {
		require.NoError(t, m.RegisterFrom(ctx, "second"))
		assert.Equal(t, 2, m.Len())
		assert.Len(t, m.Paths(), 1)
	})

	t.Run("scanning the same units again is a no-op", func(t *testing.T) {
		require.NoError(t, m.RegisterFrom(ctx, "second"))
		assert.Equal(t, 2, m.Len())
	})
}

func TestLoaderFunc(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "one.yaml"), "")
	writeFile(t, filepath.Join(root, "p", "two.yaml"), "")

	var seen []string
	m, err := registry.New(
		registry.WithRoot(root),
		registry.WithPaths("p"),
		registry.WithUniqueKeys("kind"),
		registry.WithLoader(registry.LoaderFunc(func(_ context.Context, u registry.Unit, m *registry.Manager) error {
			seen = append(seen, u.Rel)
			return m.Register(registry.Record(u.Rel), registry.Params{"kind": filepath.Base(u.Path)})
		})),
	)
	require.NoError(t, err)

	require.NoError(t, m.Load(context.Background()))
	require.NoError(t, m.Load(context.Background()))
	assert.ElementsMatch(t, []string{"p/one.yaml", "p/two.yaml"}, seen)
	assert.Equal(t, []string{"one.yaml", "two.yaml"}, keyStrings(t, m))
}
