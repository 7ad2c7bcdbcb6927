package tokenstore

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvStore keeps tokens in process environment variables. Writes only affect
// this process, so tokens obtained at runtime are lost on restart - suitable
// when an external secret manager injects the variables at deploy time.
type EnvStore struct {
	prefix string
}

// Compile-time check to ensure EnvStore implements TokenStore
var _ TokenStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore mapping token keys to environment variables
// named prefix + upper(key), e.g. prefix "BOOKMARKD_" yields
// BOOKMARKD_ACCESS_TOKEN and BOOKMARKD_REFRESH_TOKEN.
func NewEnvStore(prefix string) (*EnvStore, error) {
	if prefix == "" {
		return nil, fmt.Errorf("environment prefix cannot be empty")
	}

	return &EnvStore{
		prefix: prefix,
	}, nil
}

// Get returns the token from the environment variable for key.
func (e *EnvStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validKey(key); err != nil {
		return "", err
	}

	value := os.Getenv(e.envName(key))
	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// Set updates the environment variable for key. The write is visible to
// subsequent Gets in this process only.
func (e *EnvStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validKey(key); err != nil {
		return err
	}

	return os.Setenv(e.envName(key), value)
}

func (e *EnvStore) envName(key string) string {
	return e.prefix + strings.ToUpper(key)
}
