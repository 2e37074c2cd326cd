package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cone387/cone/pkg/core"
)

// Unit is one discovered source file.
type Unit struct {
	// Path is absolute.
	Path string
	// Rel is Path relative to the manager root, slash separated.
	Rel string
}

// Manageable reports whether the file at path would be handed to loaders.
// Names starting with an underscore are always skipped.
func (m *Manager) Manageable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "_") {
		return false
	}
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range m.patterns {
		name := base
		if strings.Contains(pattern, "/") {
			name = rel
		}
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (m *Manager) unit(path string) (Unit, error) {
	rel, err := filepath.Rel(m.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Unit{}, core.E(core.KindConfig, "registry.Discover", fmt.Errorf("%w: %s is not under %s", ErrOutsideRoot, path, m.root))
	}
	return Unit{Path: path, Rel: filepath.ToSlash(rel)}, nil
}

// discover lists the units under path. A missing path yields nothing.
func (m *Manager) discover(path string) (units []Unit, walked bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.logger.Debug("discovery path does not exist", "path", path)
			return nil, false, nil
		}
		return nil, false, core.E(core.KindScan, "registry.Discover", err)
	}

	if !info.IsDir() {
		if !m.Manageable(path) {
			return nil, false, nil
		}
		u, err := m.unit(path)
		if err != nil {
			return nil, false, err
		}
		return []Unit{u}, false, nil
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			m.logger.Debug("skipping unreadable path", "path", p, "error", walkErr)
			return nil
		}
		if d.IsDir() || !m.Manageable(p) {
			return nil
		}
		u, err := m.unit(p)
		if err != nil {
			return err
		}
		units = append(units, u)
		return nil
	})
	return units, true, err
}

// Discover lists every unit under the configured paths without loading anything.
func (m *Manager) Discover() ([]Unit, error) {
	var all []Unit
	for _, path := range m.Paths() {
		units, _, err := m.discover(path)
		if err != nil {
			return nil, err
		}
		all = append(all, units...)
	}
	return all, nil
}

// scan discovers and loads path. Inside a directory only configuration errors
// stop the scan; anything else is logged and the unit skipped.
func (m *Manager) scan(ctx context.Context, path string) error {
	units, walked, err := m.discover(path)
	if err != nil {
		return err
	}
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := m.loadUnit(ctx, u)
		if err == nil {
			continue
		}
		if !walked || core.IsKind(err, core.KindConfig) {
			return err
		}
		m.logger.Debug("skipping unit", "path", u.Path, "error", err)
	}
	return nil
}

// loadUnit hands u to every loader. A unit that loaded cleanly is never loaded
// again; callers hold loadMu.
func (m *Manager) loadUnit(ctx context.Context, u Unit) error {
	m.mu.RLock()
	seen := m.seen[u.Path]
	m.mu.RUnlock()
	if seen {
		return nil
	}

	for _, l := range m.loaders {
		if err := l.Load(ctx, u, m); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.seen[u.Path] = true
	m.mu.Unlock()

	m.logger.Debug("unit loaded", "path", u.Rel)
	return nil
}
