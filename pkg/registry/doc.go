// Package registry keeps classes indexed by a tuple of key fields and finds
// them lazily on disk.
//
// A Manager is configured with the names of its unique key fields and a set of
// paths. Classes get in two ways: explicitly, through Register and
// RegisterGenerated, or through discovery. Discovery runs once, on the first
// lookup or iteration, and walks every configured path for source units
// (manifest files by default), handing each one to the configured Loaders.
// Files whose name starts with an underscore are never loaded.
//
// Lookups return an immutable Entry. Entries produced by a generator carry
// their own key fields, so one class can back many keys without its state
// being touched on each lookup.
//
//	set := registry.NewSet()
//	plugins, err := set.Manager(
//		registry.WithPaths("./plugins"),
//		registry.WithUniqueKeys("kind"),
//		registry.WithLoader(registry.ManifestLoader{Classes: catalog}),
//	)
//	fetcher, err := plugins.New(ctx, registry.Params{"kind": "http", "timeout": 5})
//
// A Set maps a configuration to one shared Manager, so asking twice for the
// same paths and keys returns the same Manager.
package registry
