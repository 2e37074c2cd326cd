package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cone387/cone/pkg/core"
)

// ErrUnknownClass is returned when a manifest names a class the resolver does not know.
var ErrUnknownClass = errors.New("unknown class")

// Loader turns a discovered unit into registrations on m.
type Loader interface {
	Load(ctx context.Context, u Unit, m *Manager) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, u Unit, m *Manager) error

func (f LoaderFunc) Load(ctx context.Context, u Unit, m *Manager) error {
	return f(ctx, u, m)
}

// Resolver maps the class names used in manifests to classes.
type Resolver interface {
	Lookup(name string) (Class, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) (Class, bool)

func (f ResolverFunc) Lookup(name string) (Class, bool) {
	return f(name)
}

// Catalog is a Resolver backed by a map of class name to class.
type Catalog map[string]Class

// Add stores cls under its name.
func (c Catalog) Add(classes ...Class) Catalog {
	for _, cls := range classes {
		c[cls.Name()] = cls
	}
	return c
}

func (c Catalog) Lookup(name string) (Class, bool) {
	cls, ok := c[name]
	return cls, ok
}

// Manifest is one registration declared in a unit.
//
//	class: http-fetcher
//	keys: {kind: http}
//	overwritable: true
//	---
//	class: echo
//	generate: [a, b, c]
//
// generate items are either a single value or a list matching the unique keys.
type Manifest struct {
	Class        string         `yaml:"class"`
	Keys         map[string]any `yaml:"keys,omitempty"`
	Generate     []any          `yaml:"generate,omitempty"`
	Overwritable bool           `yaml:"overwritable,omitempty"`
}

// ManifestLoader reads YAML (or JSON) units holding one Manifest per document.
type ManifestLoader struct {
	Classes Resolver
}

// Load decodes every document of u before registering any of them, so a unit
// that fails to parse leaves the manager untouched.
func (l ManifestLoader) Load(ctx context.Context, u Unit, m *Manager) error {
	const op = "registry.ManifestLoader"

	manifests, err := ReadManifests(u.Path)
	if err != nil {
		return core.E(core.KindScan, op, err)
	}

	type resolved struct {
		manifest Manifest
		class    Class
	}
	plan := make([]resolved, 0, len(manifests))
	for _, mf := range manifests {
		var cls Class
		var ok bool
		if l.Classes != nil {
			cls, ok = l.Classes.Lookup(mf.Class)
		}
		if !ok {
			return core.E(core.KindScan, op, fmt.Errorf("%w %q in %s", ErrUnknownClass, mf.Class, u.Rel))
		}
		plan = append(plan, resolved{manifest: mf, class: cls})
	}

	for _, r := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		opts := []RegisterOption{WithSource(u.Rel)}
		if r.manifest.Overwritable {
			opts = append(opts, WithOverwritable())
		}
		if len(r.manifest.Generate) > 0 {
			err = m.RegisterGenerated(r.class, generatorOf(r.manifest.Generate), opts...)
		} else {
			err = m.Register(r.class, Params(r.manifest.Keys), opts...)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadManifests decodes every document in the file at path.
func ReadManifests(path string) ([]Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Manifest
	dec := yaml.NewDecoder(f)
	for {
		var mf Manifest
		err := dec.Decode(&mf)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		if mf.Class == "" {
			return nil, fmt.Errorf("manifest in %s has no class", path)
		}
		out = append(out, mf)
	}
}

func generatorOf(items []any) Generator {
	return func(yield func([]string) bool) {
		for _, item := range items {
			var values []string
			if list, ok := item.([]any); ok {
				for _, v := range list {
					values = append(values, formatValue(v))
				}
			} else {
				values = []string{formatValue(item)}
			}
			if !yield(values) {
				return
			}
		}
	}
}
