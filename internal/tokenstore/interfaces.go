package tokenstore

import (
	"context"
	"errors"
)

// Keys under which the OAuth credential pair is persisted. Every backend
// stores exactly these two secrets.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// ErrNotFound is returned by Get when no value has been stored under the key.
// Callers treat it as "absent", not as a failure.
var ErrNotFound = errors.New("token not found")

// TokenStore reads and writes named tokens in persistent storage.
//
// Implementations must provide read-after-write consistency: a Get following
// a successful Set for the same key returns the just-written value. No
// implementation may cache reads below this interface, since the backing
// store can be shared with other processes.
type TokenStore interface {
	// Get returns the value stored under key. Returns ErrNotFound when the
	// key has never been written.
	Get(ctx context.Context, key string) (string, error)

	// Set durably persists value under key, overwriting any existing value
	// (upsert semantics - repeated writes to the same key succeed).
	Set(ctx context.Context, key, value string) error
}

// validKey guards against typos in callers; the key set is closed.
func validKey(key string) error {
	switch key {
	case KeyAccessToken, KeyRefreshToken:
		return nil
	}
	return errors.New("unknown token key: " + key)
}
