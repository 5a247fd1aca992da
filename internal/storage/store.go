package storage

import (
	"context"
	"errors"
	"fmt"
)

// ObjectStore persists uploaded images and generated artifacts under
// slash-separated keys.
type ObjectStore interface {
	// Put stores data under key and returns the canonical key.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get returns the bytes stored under key. Missing keys yield ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
}

var (
	ErrNotFound     = errors.New("object not found")
	ErrAccessDenied = errors.New("access denied")
	ErrUnavailable  = errors.New("storage unavailable")
)

// Error carries the failing operation and key alongside the cause.
type Error struct {
	Op      string
	Backend string
	Key     string
	Err     error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
