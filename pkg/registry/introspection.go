package registry

import (
	"github.com/aretw0/introspection"
)

// ManagerState exposes internal state for observability.
type ManagerState struct {
	Name       string   `json:"name,omitempty"`
	Root       string   `json:"root"`
	Paths      []string `json:"paths"`
	UniqueKeys []string `json:"unique_keys"`
	Patterns   []string `json:"patterns"`
	Loaded     bool     `json:"loaded"`
	Units      int      `json:"units"`
	Entries    int      `json:"entries"`
	Watching   bool     `json:"watching"`
}

// State implements introspection.Introspectable.
func (m *Manager) State() any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ManagerState{
		Name:       m.name,
		Root:       m.root,
		Paths:      append([]string(nil), m.paths...),
		UniqueKeys: append([]string(nil), m.uniqueKeys...),
		Patterns:   append([]string(nil), m.patterns...),
		Loaded:     m.loaded,
		Units:      len(m.seen),
		Entries:    len(m.entries),
		Watching:   m.watching,
	}
}

// ComponentType implements introspection.Component.
func (m *Manager) ComponentType() string {
	return "registry"
}

var _ introspection.Introspectable = (*Manager)(nil)
var _ introspection.Component = (*Manager)(nil)
