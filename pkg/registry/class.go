package registry

import "slices"

// Class is anything a Manager can store and instantiate.
type Class interface {
	Name() string
	New(params Params) (any, error)
}

// KeyAccepter is implemented by classes whose constructor takes some of the
// unique key fields. Key fields it does not accept are dropped before New.
type KeyAccepter interface {
	AcceptsKey(field string) bool
}

type classFunc struct {
	name string
	fn   func(Params) (any, error)
	keys []string
}

func (c *classFunc) Name() string                   { return c.name }
func (c *classFunc) New(params Params) (any, error) { return c.fn(params) }
func (c *classFunc) AcceptsKey(field string) bool   { return slices.Contains(c.keys, field) }

// NewClass wraps a constructor. acceptKeys lists the key fields passed through to fn.
func NewClass(name string, fn func(Params) (any, error), acceptKeys ...string) Class {
	return &classFunc{name: name, fn: fn, keys: acceptKeys}
}

type record struct {
	name string
}

func (r *record) Name() string { return r.name }

func (r *record) New(params Params) (any, error) {
	out := map[string]any{"class": r.name}
	for k, v := range params {
		out[k] = v
	}
	return out, nil
}

func (r *record) AcceptsKey(string) bool { return true }

// Record returns a class whose instances are plain maps of the params they were
// built with, plus the class name under "class".
func Record(name string) Class {
	return &record{name: name}
}

// Entry is one registered key.
type Entry struct {
	Key   Key
	Class Class
	// Fields are the unique key fields and values this entry was registered under.
	Fields       Params
	Overwritable bool
	Generated    bool
	// Source is the unit the entry came from, empty for explicit registrations.
	Source string
}

// ConstructorParams returns what New would hand to the class: params minus the
// key fields, plus the entry's own key fields the class accepts.
func (e Entry) ConstructorParams(params Params) Params {
	out := make(Params, len(params)+len(e.Fields))
	for k, v := range params {
		if _, isKey := e.Fields[k]; !isKey {
			out[k] = v
		}
	}
	accepter, _ := e.Class.(KeyAccepter)
	for k, v := range e.Fields {
		if accepter != nil && accepter.AcceptsKey(k) {
			out[k] = v
		}
	}
	return out
}

// New instantiates the entry's class.
func (e Entry) New(params Params) (any, error) {
	return e.Class.New(e.ConstructorParams(params))
}
