package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the requested id is absent.  It is never
	// retried.
	ErrNotFound = errors.New("entity not found")

	// ErrTransient marks a dropped connection or timeout.  The store state is
	// unchanged when it is returned, so the same call can be retried.
	ErrTransient = errors.New("transient store failure")

	// ErrInvalidID rejects an upsert whose id is blank or carries surrounding
	// whitespace.  Nothing is written.
	ErrInvalidID = errors.New("invalid entity id")
)

// CheckID returns ErrInvalidID unless id is non-empty and already trimmed.
func CheckID(id string) error {
	if id == "" || strings.TrimSpace(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// IsTransient reports whether err is safe to retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
