package registry

import (
	"errors"
	"sync"

	"github.com/cone387/cone/pkg/core"
)

// Set hands out one Manager per identity. The identity is the discovery paths
// when there are any, otherwise the name, together with the unique keys.
type Set struct {
	mu       sync.Mutex
	managers map[string]*Manager
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{managers: make(map[string]*Manager)}
}

// Manager returns the manager for the identity opts describe, creating it on
// first use. Later calls with the same identity get the same manager and their
// other options are ignored.
func (s *Set) Manager(opts ...Option) (*Manager, error) {
	cfg := buildConfig(opts)
	id := cfg.identity()
	if id == "" {
		return nil, core.E(core.KindConfig, "registry.Set", errors.New("path or name must be provided"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.managers[id]; ok {
		return m, nil
	}
	m, err := newManager(cfg)
	if err != nil {
		return nil, err
	}
	s.managers[id] = m
	return m, nil
}

// Managers returns every manager created so far.
func (s *Set) Managers() []*Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Manager, 0, len(s.managers))
	for _, m := range s.managers {
		out = append(out, m)
	}
	return out
}

// Len returns the number of managers in the set.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.managers)
}

// Reset forgets every manager. Managers already handed out keep working.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managers = make(map[string]*Manager)
}
