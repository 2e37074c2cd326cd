// Package core holds the error taxonomy shared by the cone packages.
package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way callers are expected to react to it.
type Kind string

const (
	// KindConfig covers bad or missing key material, duplicate registrations and invalid configuration.
	KindConfig Kind = "config"
	// KindParse covers malformed input such as a curl command that cannot be understood.
	KindParse Kind = "parse"
	// KindRemote covers failures reported by, or while talking to, an external endpoint.
	KindRemote Kind = "remote"
	// KindScan covers best-effort discovery failures. These are logged and skipped.
	KindScan Kind = "scan"
)

// Error is the error type shared by every cone package.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an *Error. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
