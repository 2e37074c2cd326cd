package registry

import (
	"fmt"
	"iter"
	"strings"
)

// Params holds field values, both key fields and constructor arguments.
type Params map[string]any

// keySep never shows up in rendered keys; it only keeps tuple parts apart.
const keySep = "\x1f"

// Key identifies an entry. With one unique key field it is that field's value;
// with several it is the ordered tuple of their values.
//
// Values are compared by their string form: non-string values go through
// fmt.Sprint, so 1 and "1" are the same key. Values may not contain the
// unit separator (U+001F).
type Key string

// KeyOf builds the Key for the given values, in unique-key order.
func KeyOf(values ...string) Key {
	return Key(strings.Join(values, keySep))
}

// Parts returns the tuple values of k.
func (k Key) Parts() []string {
	return strings.Split(string(k), keySep)
}

// String renders a single-field key as its value and a tuple as "(a, b)".
func (k Key) String() string {
	parts := k.Parts()
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// checkParts rejects values that would fake a tuple boundary.
func checkParts(parts []string) error {
	for _, p := range parts {
		if strings.Contains(p, keySep) {
			return fmt.Errorf("%w: %q contains the key separator", ErrInvalidKey, p)
		}
	}
	return nil
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Generator yields key tuples, one per entry to register.
type Generator = iter.Seq[[]string]

// Values is a Generator for single-field registries.
func Values(values ...string) Generator {
	return func(yield func([]string) bool) {
		for _, v := range values {
			if !yield([]string{v}) {
				return
			}
		}
	}
}

// Tuples is a Generator over explicit key tuples.
func Tuples(tuples ...[]string) Generator {
	return func(yield func([]string) bool) {
		for _, t := range tuples {
			if !yield(t) {
				return
			}
		}
	}
}
