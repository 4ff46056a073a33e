// Package tokenstore persists small client-side values, most importantly the
// bearer token the HTTP adapter attaches to outgoing requests.
package tokenstore

import (
	"context"
	"errors"
)

// DefaultKey is the key the bearer token is stored under.
const DefaultKey = "auth_token"

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("tokenstore: key not found")

// Store is a string key-value store that survives restarts of the session.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	// Clear removes key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error
}

// Lookup returns the value under key and whether it was present. Errors other
// than ErrNotFound are returned as is.
func Lookup(ctx context.Context, s Store, key string) (string, bool, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, v != "", nil
}
