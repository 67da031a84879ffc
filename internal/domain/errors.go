package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures crossing a port boundary.
type Kind string

const (
	KindProvider   Kind = "PROVIDER"
	KindStore      Kind = "STORE"
	KindValidation Kind = "VALIDATION"
	KindDecode     Kind = "DECODE"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrProvider   = &Error{Kind: KindProvider}
	ErrStore      = &Error{Kind: KindStore}
	ErrValidation = &Error{Kind: KindValidation}
	ErrDecode     = &Error{Kind: KindDecode}

	// ErrNotFound is wrapped in a store error when an incident id does not exist.
	ErrNotFound = errors.New("incident not found")
)

// Error carries the kind, the failing operation and the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrStore) works on wrapped chains.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// ProviderError wraps an embedding or oracle failure.
func ProviderError(op string, err error) error {
	return &Error{Kind: KindProvider, Op: op, Err: err}
}

// StoreError wraps a similarity store failure.
func StoreError(op string, err error) error {
	return &Error{Kind: KindStore, Op: op, Err: err}
}

// ValidationError reports unusable input.
func ValidationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// DecodeError reports a malformed classifier response.
func DecodeError(op string, err error) error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}
