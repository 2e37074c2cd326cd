package registry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/cone387/cone/pkg/core"
)

var (
	// ErrDuplicateKey is returned when a key is taken by an entry that is not overwritable.
	ErrDuplicateKey = errors.New("class already exists and is not overwritable")
	// ErrMissingKey is returned when a unique key field has no value, or none are configured.
	ErrMissingKey = errors.New("missing unique key")
	// ErrInvalidKey is returned for key values that cannot be told apart from a tuple.
	ErrInvalidKey = errors.New("invalid key value")
	// ErrNotFound is returned by lookups for unknown keys.
	ErrNotFound = errors.New("class not found")
	// ErrOutsideRoot is returned for units that do not live under the manager's root.
	ErrOutsideRoot = errors.New("file not in working directory")
)

// DefaultPatterns select the units discovery hands to loaders.
var DefaultPatterns = []string{"*.yaml", "*.yml", "*.json"}

// Manager is a key-indexed class registry with lazy discovery.
type Manager struct {
	name       string
	uniqueKeys []string
	root       string
	patterns   []string
	loaders    []Loader
	logger     *slog.Logger

	// loadMu serializes discovery so concurrent first lookups load once.
	loadMu sync.Mutex

	mu       sync.RWMutex
	paths    []string
	loaded   bool
	seen     map[string]bool
	entries  map[Key]Entry
	watching bool
}

// New creates a standalone Manager. Most callers go through a Set instead.
func New(opts ...Option) (*Manager, error) {
	return newManager(buildConfig(opts))
}

func newManager(cfg *config) (*Manager, error) {
	const op = "registry.New"

	if len(cfg.uniqueKeys) == 0 {
		return nil, core.E(core.KindConfig, op, fmt.Errorf("%w: unique keys must be provided", ErrMissingKey))
	}

	root := cfg.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, core.E(core.KindConfig, op, err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, core.E(core.KindConfig, op, err)
	}

	m := &Manager{
		name:       cfg.name,
		uniqueKeys: slices.Clone(cfg.uniqueKeys),
		root:       root,
		patterns:   cfg.patterns,
		loaders:    cfg.loaders,
		logger:     cfg.logger,
		seen:       make(map[string]bool),
		entries:    make(map[Key]Entry),
	}
	if len(m.patterns) == 0 {
		m.patterns = DefaultPatterns
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "registry")
	for _, p := range cfg.paths {
		m.paths = append(m.paths, m.resolve(p))
	}
	return m, nil
}

func (m *Manager) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(m.root, path)
}

// UniqueKeys returns the key field names, in key order.
func (m *Manager) UniqueKeys() []string {
	return slices.Clone(m.uniqueKeys)
}

// Root returns the directory units must live under.
func (m *Manager) Root() string {
	return m.root
}

// Paths returns the configured discovery paths.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.paths)
}

func (m *Manager) isUniqueKey(field string) bool {
	return slices.Contains(m.uniqueKeys, field)
}

// KeyFor builds the key for params. Every unique key field must be present;
// other fields are ignored.
func (m *Manager) KeyFor(params Params) (Key, Params, error) {
	parts := make([]string, len(m.uniqueKeys))
	fields := make(Params, len(m.uniqueKeys))
	for i, field := range m.uniqueKeys {
		v, ok := params[field]
		if !ok {
			return "", nil, core.E(core.KindConfig, "registry.KeyFor", fmt.Errorf("%w: %q", ErrMissingKey, field))
		}
		parts[i] = formatValue(v)
		fields[field] = v
	}
	if err := checkParts(parts); err != nil {
		return "", nil, core.E(core.KindConfig, "registry.KeyFor", err)
	}
	return KeyOf(parts...), fields, nil
}

// Register stores cls under the key built from params.
func (m *Manager) Register(cls Class, params Params, opts ...RegisterOption) error {
	o := buildRegisterOptions(opts)
	key, fields, err := m.KeyFor(params)
	if err != nil {
		return err
	}
	return m.add(Entry{
		Key:          key,
		Class:        cls,
		Fields:       fields,
		Overwritable: o.overwritable,
		Source:       o.source,
	})
}

// RegisterGenerated stores cls once per tuple gen yields. Each entry keeps the
// fields of its own tuple.
func (m *Manager) RegisterGenerated(cls Class, gen Generator, opts ...RegisterOption) error {
	const op = "registry.RegisterGenerated"
	if gen == nil {
		return core.E(core.KindConfig, op, errors.New("generator must not be nil"))
	}

	o := buildRegisterOptions(opts)
	for values := range gen {
		if len(values) < len(m.uniqueKeys) {
			return core.E(core.KindConfig, op, fmt.Errorf("%w: tuple %v does not cover %v", ErrMissingKey, values, m.uniqueKeys))
		}
		if err := checkParts(values[:len(m.uniqueKeys)]); err != nil {
			return core.E(core.KindConfig, op, err)
		}
		fields := make(Params, len(m.uniqueKeys))
		for i, field := range m.uniqueKeys {
			fields[field] = values[i]
		}
		err := m.add(Entry{
			Key:          KeyOf(values[:len(m.uniqueKeys)]...),
			Class:        cls,
			Fields:       fields,
			Overwritable: o.overwritable,
			Generated:    true,
			Source:       o.source,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) add(e Entry) error {
	const op = "registry.Register"
	if e.Class == nil {
		return core.E(core.KindConfig, op, errors.New("class must not be nil"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[e.Key]; ok && !existing.Overwritable {
		return core.E(core.KindConfig, op, fmt.Errorf("%w: %s (held by %s)", ErrDuplicateKey, e.Key, existing.Class.Name()))
	}
	m.entries[e.Key] = e

	m.logger.Debug("class registered",
		"key", e.Key.String(),
		"class", e.Class.Name(),
		"generated", e.Generated,
		"overwritable", e.Overwritable,
		"source", e.Source,
	)
	return nil
}

// RegisterFrom adds a discovery path. If discovery already ran, the path is
// scanned right away; otherwise it waits for the first lookup.
func (m *Manager) RegisterFrom(ctx context.Context, path string) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	abs := m.resolve(path)

	m.mu.Lock()
	loaded := m.loaded
	if !loaded {
		m.paths = append(m.paths, abs)
	}
	m.mu.Unlock()

	if !loaded {
		return nil
	}
	return m.scan(ctx, abs)
}

// Load runs discovery if it has not completed yet. A pass that fails or is
// cancelled leaves the manager unloaded, so the next lookup scans again; units
// that already loaded are skipped then.
func (m *Manager) Load(ctx context.Context) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.RLock()
	loaded := m.loaded
	paths := slices.Clone(m.paths)
	m.mu.RUnlock()
	if loaded {
		return nil
	}

	for _, path := range paths {
		if err := m.scan(ctx, path); err != nil {
			m.logger.Warn("registry discovery failed", "path", path, "error", err)
			return err
		}
	}

	m.mu.Lock()
	m.loaded = true
	count := len(m.entries)
	m.mu.Unlock()

	m.logger.Info("registry loaded", "paths", len(paths), "entries", count)
	return nil
}

// Loaded reports whether discovery has run.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Get returns the entry for key, running discovery first if needed.
func (m *Manager) Get(ctx context.Context, key Key) (Entry, error) {
	if err := m.Load(ctx); err != nil {
		return Entry{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, core.E(core.KindConfig, "registry.Get", fmt.Errorf("%w: %s", ErrNotFound, key))
	}
	return e, nil
}

// Find returns the entry for the key built from params.
func (m *Manager) Find(ctx context.Context, params Params) (Entry, error) {
	key, _, err := m.KeyFor(params)
	if err != nil {
		return Entry{}, err
	}
	return m.Get(ctx, key)
}

// New finds the entry for params and instantiates it. Non-key params go to the
// constructor; key fields only when the class accepts them.
func (m *Manager) New(ctx context.Context, params Params) (any, error) {
	e, err := m.Find(ctx, params)
	if err != nil {
		return nil, err
	}
	return e.New(params)
}

// Call is the factory entry point. When cls or a generator is given and every
// param names a unique key field, it registers and returns cls. Otherwise it
// behaves like New and returns an instance. WithLookup forces the second form.
func (m *Manager) Call(ctx context.Context, params Params, cls Class, opts ...RegisterOption) (any, error) {
	o := buildRegisterOptions(opts)

	registering := !o.lookup && (cls != nil || o.generator != nil)
	if registering {
		for field := range params {
			if !m.isUniqueKey(field) {
				registering = false
				break
			}
		}
	}

	if !registering {
		return m.New(ctx, params)
	}
	if cls == nil {
		return nil, core.E(core.KindConfig, "registry.Call", errors.New("a class is required to register"))
	}
	if o.generator != nil {
		return cls, m.RegisterGenerated(cls, o.generator, opts...)
	}
	return cls, m.Register(cls, params, opts...)
}

// Contains reports whether key is registered.
func (m *Manager) Contains(ctx context.Context, key Key) (bool, error) {
	if err := m.Load(ctx); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok, nil
}

// Keys returns every registered key, sorted.
func (m *Manager) Keys(ctx context.Context) ([]Key, error) {
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedKeys(), nil
}

// Entries returns every entry, sorted by key.
func (m *Manager) Entries(ctx context.Context) ([]Entry, error) {
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, k := range m.sortedKeys() {
		out = append(out, m.entries[k])
	}
	return out, nil
}

// All iterates over a snapshot of the entries, sorted by key.
func (m *Manager) All(ctx context.Context) (iter.Seq2[Key, Entry], error) {
	entries, err := m.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return func(yield func(Key, Entry) bool) {
		for _, e := range entries {
			if !yield(e.Key, e) {
				return
			}
		}
	}, nil
}

func (m *Manager) sortedKeys() []Key {
	keys := make([]Key, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of entries without triggering discovery.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Manager) String() string {
	return fmt.Sprintf("Manager(paths=[%s], num=%d)", strings.Join(m.Paths(), ", "), m.Len())
}
