package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no persisted value.
var ErrNotFound = errors.New("key not found")

// ErrUnavailable wraps backend failures so callers can distinguish "absent"
// from "unreachable".
var ErrUnavailable = errors.New("storage unavailable")

// Store is the persisted key-value medium. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
