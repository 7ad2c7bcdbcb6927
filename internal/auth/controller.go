// Package auth owns the token lifecycle: completing a PKCE login, reading the
// current access token and refreshing it on demand.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bookmarkd/bookmarkd/internal/oauth"
	"github.com/bookmarkd/bookmarkd/internal/tokenstore"
)

// ErrNotAuthenticated signals that no usable credential is available; the
// user must (re-)run the login flow.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNoLoginSession signals a callback with no login in progress.
var ErrNoLoginSession = errors.New("no login in progress")

// ErrStateMismatch signals a callback whose state parameter does not match
// the nonce issued at login. Treated as a forged or stale callback.
var ErrStateMismatch = errors.New("oauth state mismatch")

// Controller orchestrates the token lifecycle over one TokenStore, one OAuth
// client and one PKCE session manager. Handlers hold a reference to a single
// shared instance; there is no package-level state.
//
// Storage is fail-soft in both directions: read errors degrade to the pair
// held in memory from the last successful exchange or refresh, and write
// errors are logged without failing the operation that produced the token.
// A token that could not be persisted stays usable until the process exits.
type Controller struct {
	store    tokenstore.TokenStore
	client   *oauth.Client
	sessions *oauth.SessionManager

	mu     sync.Mutex
	memory oauth.TokenPair

	refreshGroup singleflight.Group
}

// NewController creates a Controller.
func NewController(store tokenstore.TokenStore, client *oauth.Client, sessions *oauth.SessionManager) *Controller {
	return &Controller{
		store:    store,
		client:   client,
		sessions: sessions,
	}
}

// BeginLogin starts a fresh PKCE session and returns the provider
// authorization URL to redirect the user to. Any prior in-flight session is
// invalidated.
func (c *Controller) BeginLogin() string {
	session := c.sessions.Begin()
	return c.client.AuthCodeURL(session)
}

// CurrentAccessToken returns the access token to use for downstream calls.
// The store is re-read on every call rather than trusted from memory, since
// the backend may be shared with other processes.
func (c *Controller) CurrentAccessToken(ctx context.Context) (string, bool) {
	return c.readToken(ctx, tokenstore.KeyAccessToken)
}

// CompleteLogin validates the callback against the current PKCE session,
// exchanges the authorization code and persists the resulting token pair.
func (c *Controller) CompleteLogin(ctx context.Context, code, state string) error {
	session, ok := c.sessions.Current()
	if !ok {
		return ErrNoLoginSession
	}
	if state == "" || state != session.State {
		return ErrStateMismatch
	}

	pair, err := c.client.ExchangeCode(ctx, code, session.CodeVerifier)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "login completed", "session_id", session.ID)
	c.storePair(ctx, pair)
	return nil
}

// RefreshAccessToken obtains a new access token using the stored refresh
// token and persists the result (including a rotated refresh token, if the
// provider issues one). Returns ErrNotAuthenticated without contacting the
// provider when no refresh token is stored.
//
// Concurrent callers racing on the same expired token share a single
// provider call.
func (c *Controller) RefreshAccessToken(ctx context.Context) (string, error) {
	token, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		refreshToken, ok := c.readToken(ctx, tokenstore.KeyRefreshToken)
		if !ok {
			return "", fmt.Errorf("no refresh token stored: %w", ErrNotAuthenticated)
		}

		pair, err := c.client.Refresh(ctx, refreshToken)
		if err != nil {
			return "", err
		}

		slog.InfoContext(ctx, "access token refreshed")
		c.storePair(ctx, pair)
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// HasRefreshToken reports whether a refresh token is available, without
// contacting the provider.
func (c *Controller) HasRefreshToken(ctx context.Context) bool {
	_, ok := c.readToken(ctx, tokenstore.KeyRefreshToken)
	return ok
}

// readToken reads through to the store and falls back to the in-memory pair
// when the store errors or has no record.
func (c *Controller) readToken(ctx context.Context, key string) (string, bool) {
	value, err := c.store.Get(ctx, key)
	if err == nil && value != "" {
		return value, true
	}
	if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		slog.WarnContext(ctx, "token storage read failed", "key", key, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch key {
	case tokenstore.KeyAccessToken:
		value = c.memory.AccessToken
	case tokenstore.KeyRefreshToken:
		value = c.memory.RefreshToken
	}
	return value, value != ""
}

// storePair updates the in-memory pair and persists each non-empty field.
// Persistence failures are logged, never propagated: the token stays valid
// for this process and is simply lost on restart.
func (c *Controller) storePair(ctx context.Context, pair oauth.TokenPair) {
	c.mu.Lock()
	if pair.AccessToken != "" {
		c.memory.AccessToken = pair.AccessToken
	}
	if pair.RefreshToken != "" {
		c.memory.RefreshToken = pair.RefreshToken
	}
	c.mu.Unlock()

	if pair.AccessToken != "" {
		c.persist(ctx, tokenstore.KeyAccessToken, pair.AccessToken)
	}
	if pair.RefreshToken != "" {
		c.persist(ctx, tokenstore.KeyRefreshToken, pair.RefreshToken)
	}
}

func (c *Controller) persist(ctx context.Context, key, value string) {
	if err := c.store.Set(ctx, key, value); err != nil {
		slog.ErrorContext(ctx, "failed to persist token", "key", key, "error", err)
	}
}
