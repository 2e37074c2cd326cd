package registry

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// config holds the construction-time settings of a Manager.
type config struct {
	name       string
	paths      []string
	uniqueKeys []string
	root       string
	patterns   []string
	loaders    []Loader
	logger     *slog.Logger
}

// Option configures a Manager.
type Option func(*config)

func buildConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// identity is what a Set keys managers by: the paths when there are any,
// otherwise the name, plus the unique keys.
func (c *config) identity() string {
	keys := strings.Join(c.uniqueKeys, ",")
	if len(c.paths) > 0 {
		cleaned := make([]string, len(c.paths))
		for i, p := range c.paths {
			cleaned[i] = filepath.Clean(p)
		}
		return "paths=" + strings.Join(cleaned, ",") + ";keys=" + keys
	}
	if c.name != "" {
		return "name=" + c.name + ";keys=" + keys
	}
	return ""
}

// WithPaths adds discovery paths. Relative paths are taken from the root.
func WithPaths(paths ...string) Option {
	return func(c *config) {
		c.paths = append(c.paths, paths...)
	}
}

// SplitPaths turns a comma separated list into paths, dropping empty items.
func SplitPaths(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WithUniqueKeys sets the key field names, in key order.
func WithUniqueKeys(keys ...string) Option {
	return func(c *config) {
		c.uniqueKeys = keys
	}
}

// WithName names a manager that has no paths, so a Set can still tell it apart.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithRoot sets the directory every unit must live under. Defaults to the working directory.
func WithRoot(root string) Option {
	return func(c *config) {
		c.root = root
	}
}

// WithPatterns replaces DefaultPatterns. Patterns without a slash match the file
// name; others match the path relative to the root. doublestar syntax applies.
func WithPatterns(patterns ...string) Option {
	return func(c *config) {
		c.patterns = patterns
	}
}

// WithLoader adds a loader. Every unit goes through every loader, in order.
func WithLoader(l Loader) Option {
	return func(c *config) {
		c.loaders = append(c.loaders, l)
	}
}

// WithLogger sets the logger for the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

type registerOptions struct {
	overwritable bool
	lookup       bool
	generator    Generator
	source       string
}

// RegisterOption tunes a single registration or Call.
type RegisterOption func(*registerOptions)

func buildRegisterOptions(opts []RegisterOption) *registerOptions {
	o := &registerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithOverwritable lets a later registration replace this entry.
func WithOverwritable() RegisterOption {
	return func(o *registerOptions) {
		o.overwritable = true
	}
}

// WithGenerator makes Call register one entry per generated tuple.
func WithGenerator(gen Generator) RegisterOption {
	return func(o *registerOptions) {
		o.generator = gen
	}
}

// WithLookup makes Call look up and instantiate even when params only hold key fields.
func WithLookup() RegisterOption {
	return func(o *registerOptions) {
		o.lookup = true
	}
}

// WithSource records where an entry came from.
func WithSource(source string) RegisterOption {
	return func(o *registerOptions) {
		o.source = source
	}
}
