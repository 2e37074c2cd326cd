package cone

import (
	"github.com/cone387/cone/pkg/curl"
	"github.com/cone387/cone/pkg/notify"
	"github.com/cone387/cone/pkg/registry"
	"github.com/cone387/cone/pkg/singleton"
)

// --- Types ---

// Request is a public alias for the parsed curl request.
type Request = curl.Request

// Notifier is a public alias for the chat robot client.
type Notifier = notify.Client

// Robot is a public alias for a chat robot identity.
type Robot = notify.Robot

// RegistrySet is a public alias for a set of registry managers.
type RegistrySet = registry.Set

// SingletonStore is a public alias for the per-type instance store.
type SingletonStore = singleton.Store

// --- Constructors ---

// ParseCurl parses a curl command line. Unknown options are logged and ignored
// unless curl.WithStrict is given.
func ParseCurl(command string, opts ...curl.Option) (Request, error) {
	return curl.Parse(command, opts...)
}

// NewNotifier creates a chat robot client.
func NewNotifier(opts ...notify.Option) *Notifier {
	return notify.NewClient(opts...)
}

// NewRegistrySet creates an empty set of registry managers.
func NewRegistrySet() *RegistrySet {
	return registry.NewSet()
}

// NewSingletonStore creates an empty singleton store, independent of singleton.Default.
func NewSingletonStore() *SingletonStore {
	return singleton.NewStore()
}
