// Package cone is the entry point for a small set of developer utilities.
//
// The root package re-exports the constructors most callers need; the work is
// done in the packages under pkg/.
//
// Features:
//
//   - **Chat robot notifications** (`pkg/notify`): signed text messages to a
//     DingTalk-style webhook, with random robot selection and an optional
//     per-robot rate limit.
//   - **curl parsing** (`pkg/curl`): turns a curl command line into a
//     structured request that can be replayed with net/http.
//   - **Class registries** (`pkg/registry`): key-indexed registries filled
//     explicitly or by lazy discovery of manifest files, with optional
//     watching for new files.
//   - **Singletons** (`pkg/singleton`): one shared instance per type.
//
// Usage:
//
//	req, err := cone.ParseCurl(`curl -X PUT http://example.com -d 'x=1'`)
//
//	client := cone.NewNotifier(notify.WithRateLimit())
//	robot, err := client.SendRandom(ctx, robots)
//
//	plugins, err := cone.NewRegistrySet().Manager(
//		registry.WithPaths("./plugins"),
//		registry.WithUniqueKeys("kind"),
//	)
package cone
