package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyWatching is returned by Watch when a watcher is already running.
var ErrAlreadyWatching = errors.New("registry is already being watched")

const debounceWindow = 50 * time.Millisecond

// Watch loads the registry and then keeps loading units that appear under the
// discovery paths until ctx is done. Units already loaded are not reloaded;
// changes to them are ignored. Errors while loading new units are logged.
func (m *Manager) Watch(ctx context.Context) error {
	if err := m.Load(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	if m.watching {
		m.mu.Unlock()
		return ErrAlreadyWatching
	}
	m.watching = true
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.setWatching(false)
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, path := range m.Paths() {
		if err := addRecursive(watcher, path); err != nil {
			_ = watcher.Close()
			m.setWatching(false)
			return err
		}
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer m.setWatching(false)
		defer watcher.Close()
		return m.watchLoop(ctx, watcher)
	}, lifecycle.WithErrorHandler(func(err error) {
		m.logger.Error("registry watcher stopped", "error", err)
	}))

	m.logger.Info("watching registry", "paths", len(m.Paths()))
	return nil
}

// Watching reports whether a watcher is running.
func (m *Manager) Watching() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.watching
}

func (m *Manager) setWatching(v bool) {
	m.mu.Lock()
	m.watching = v
	m.mu.Unlock()
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) error {
	d := newDebouncer(debounceWindow)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			path := event.Name
			if !m.covers(path) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if err := addRecursive(watcher, path); err != nil {
					m.logger.Warn("failed to watch directory", "path", path, "error", err)
				}
				// Files created together with the directory produce no events.
				d.add(path, func() { m.loadNew(ctx, path) })
				continue
			}
			if !m.Manageable(path) {
				continue
			}
			d.add(path, func() { m.loadNew(ctx, path) })

		case err, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			m.logger.Error("fsnotify error", "error", err)
		}
	}
}

// loadNew loads every unit at path that has not been loaded yet.
func (m *Manager) loadNew(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	units, _, err := m.discover(path)
	if err != nil {
		m.logger.Warn("discovery failed", "path", path, "error", err)
		return
	}
	for _, u := range units {
		if err := m.loadUnit(ctx, u); err != nil {
			m.logger.Warn("failed to load unit", "path", u.Rel, "error", err)
		}
	}
}

// covers reports whether path is one of the discovery paths or lies under one.
func (m *Manager) covers(path string) bool {
	for _, p := range m.Paths() {
		rel, err := filepath.Rel(p, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		return watcher.Add(p)
	})
}

// debouncer collapses bursts of events per path into one call.
type debouncer struct {
	window time.Duration
	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
	closed bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) add(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	d.timers[key] = time.AfterFunc(d.window, func() {
		defer d.wg.Done()
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// stop cancels pending calls and waits for running ones.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.closed = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
