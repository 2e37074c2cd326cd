// Package singleton hands out one shared instance per type.
//
// Instances live in a Store rather than in package state, so tests can start
// from an empty store and callers decide how long instances live. Default
// returns a process-wide store for code that wants exactly one.
package singleton

import (
	"reflect"
	"sync"
)

// Store maps a type to its single instance.
type Store struct {
	mu        sync.Mutex
	instances map[reflect.Type]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{instances: make(map[reflect.Type]any)}
}

var defaultStore = NewStore()

// Default returns the process-wide store.
func Default() *Store {
	return defaultStore
}

// Reset drops every instance.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances = make(map[reflect.Type]any)
}

// Len returns the number of types that have an instance.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

func instance[T any](s *Store) *T {
	typ := reflect.TypeFor[T]()
	if v, ok := s.instances[typ]; ok {
		return v.(*T)
	}
	v := new(T)
	s.instances[typ] = v
	return v
}

// Of returns the shared *T, allocating a zero T on first use.
// No initialization ever runs on it.
func Of[T any](s *Store) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return instance[T](s)
}

// Construct returns the shared *T. When init is non-nil it runs on the shared
// instance every time, so a later call overwrites whatever an earlier one set.
func Construct[T any](s *Store, init func(*T)) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := instance[T](s)
	if init != nil {
		init(v)
	}
	return v
}

// Has reports whether T already has an instance.
func Has[T any](s *Store) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.instances[reflect.TypeFor[T]()]
	return ok
}
