package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bookmarkd/bookmarkd/internal/oauth"
	"github.com/bookmarkd/bookmarkd/internal/tokenstore"
)

// fakeStore is an in-memory TokenStore with injectable failures.
type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (s *fakeStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return "", tokenstore.ErrNotFound
	}
	return value, nil
}

func (s *fakeStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func (s *fakeStore) value(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// providerCalls counts token endpoint traffic by grant type.
type providerCalls struct {
	mu           sync.Mutex
	exchanges    int
	refreshes    int
	lastVerifier string
}

func newProvider(t *testing.T) (*httptest.Server, *providerCalls) {
	t.Helper()

	calls := &providerCalls{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		calls.mu.Lock()
		defer calls.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			calls.exchanges++
			calls.lastVerifier = r.PostForm.Get("code_verifier")
			fmt.Fprint(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"bearer"}`)
		case "refresh_token":
			calls.refreshes++
			fmt.Fprint(w, `{"access_token":"at-2","refresh_token":"rt-2","token_type":"bearer"}`)
		default:
			http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func newTestController(t *testing.T, store tokenstore.TokenStore) (*Controller, *oauth.SessionManager, *providerCalls) {
	t.Helper()

	srv, calls := newProvider(t)
	client := oauth.NewClient(oauth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3001/callback",
		AuthURL:      "https://provider.example/authorize",
		TokenURL:     srv.URL,
	})
	sessions := oauth.NewSessionManager()
	return NewController(store, client, sessions), sessions, calls
}

func TestCompleteLoginStoresTokens(t *testing.T) {
	store := newFakeStore()
	controller, sessions, calls := newTestController(t, store)
	ctx := context.Background()

	controller.BeginLogin()
	session, _ := sessions.Current()

	if err := controller.CompleteLogin(ctx, "the-code", session.State); err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}

	if calls.exchanges != 1 {
		t.Errorf("exchange calls = %d, want 1", calls.exchanges)
	}
	if got := store.value(tokenstore.KeyAccessToken); got != "at-1" {
		t.Errorf("stored access token = %q, want at-1", got)
	}
	if got := store.value(tokenstore.KeyRefreshToken); got != "rt-1" {
		t.Errorf("stored refresh token = %q, want rt-1", got)
	}

	token, ok := controller.CurrentAccessToken(ctx)
	if !ok || token != "at-1" {
		t.Errorf("CurrentAccessToken = %q, %v; want at-1, true", token, ok)
	}
}

func TestCompleteLoginWithoutSession(t *testing.T) {
	controller, _, calls := newTestController(t, newFakeStore())

	err := controller.CompleteLogin(context.Background(), "code", "state")
	if !errors.Is(err, ErrNoLoginSession) {
		t.Errorf("error = %v, want ErrNoLoginSession", err)
	}
	if calls.exchanges != 0 {
		t.Errorf("exchange calls = %d, want 0", calls.exchanges)
	}
}

func TestCompleteLoginStateMismatch(t *testing.T) {
	controller, _, calls := newTestController(t, newFakeStore())
	controller.BeginLogin()

	for _, state := range []string{"", "forged-state"} {
		err := controller.CompleteLogin(context.Background(), "code", state)
		if !errors.Is(err, ErrStateMismatch) {
			t.Errorf("state %q: error = %v, want ErrStateMismatch", state, err)
		}
	}
	if calls.exchanges != 0 {
		t.Errorf("exchange calls = %d, want 0 (no exchange on bad state)", calls.exchanges)
	}
}

func TestSecondLoginInvalidatesFirstSession(t *testing.T) {
	controller, sessions, calls := newTestController(t, newFakeStore())
	ctx := context.Background()

	controller.BeginLogin()
	first, _ := sessions.Current()
	controller.BeginLogin()
	second, _ := sessions.Current()

	// Callback carrying the first session's state is rejected outright.
	if err := controller.CompleteLogin(ctx, "code", first.State); !errors.Is(err, ErrStateMismatch) {
		t.Errorf("stale session error = %v, want ErrStateMismatch", err)
	}

	// A valid callback exchanges with the second session's verifier.
	if err := controller.CompleteLogin(ctx, "code", second.State); err != nil {
		t.Fatalf("CompleteLogin: %v", err)
	}
	if calls.lastVerifier != second.CodeVerifier {
		t.Errorf("exchange used verifier %q, want the current session's", calls.lastVerifier)
	}
	if calls.lastVerifier == first.CodeVerifier {
		t.Error("exchange used the stale session's verifier")
	}
}

func TestRefreshWithoutStoredToken(t *testing.T) {
	controller, _, calls := newTestController(t, newFakeStore())

	_, err := controller.RefreshAccessToken(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}
	if calls.refreshes != 0 {
		t.Errorf("refresh calls = %d, want 0 (provider must not be contacted)", calls.refreshes)
	}
}

func TestRefreshPersistsRotatedPair(t *testing.T) {
	store := newFakeStore()
	store.values[tokenstore.KeyAccessToken] = "at-stale"
	store.values[tokenstore.KeyRefreshToken] = "rt-1"
	controller, _, calls := newTestController(t, store)

	token, err := controller.RefreshAccessToken(context.Background())
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}
	if token != "at-2" {
		t.Errorf("new access token = %q, want at-2", token)
	}
	if calls.refreshes != 1 {
		t.Errorf("refresh calls = %d, want 1", calls.refreshes)
	}
	if got := store.value(tokenstore.KeyAccessToken); got != "at-2" {
		t.Errorf("stored access token = %q, want at-2", got)
	}
	if got := store.value(tokenstore.KeyRefreshToken); got != "rt-2" {
		t.Errorf("stored refresh token = %q, want rotated rt-2", got)
	}
}

func TestCurrentAccessTokenReadsThrough(t *testing.T) {
	store := newFakeStore()
	store.values[tokenstore.KeyAccessToken] = "at-1"
	controller, _, _ := newTestController(t, store)
	ctx := context.Background()

	if token, _ := controller.CurrentAccessToken(ctx); token != "at-1" {
		t.Fatalf("token = %q, want at-1", token)
	}

	// Another process updated shared storage; the next read must see it.
	store.mu.Lock()
	store.values[tokenstore.KeyAccessToken] = "at-external"
	store.mu.Unlock()

	if token, _ := controller.CurrentAccessToken(ctx); token != "at-external" {
		t.Errorf("token = %q, want at-external (no caching above the store)", token)
	}
}

func TestStorageFailSoft(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("backend unreachable")
	controller, sessions, _ := newTestController(t, store)
	ctx := context.Background()

	controller.BeginLogin()
	session, _ := sessions.Current()

	// Persistence failure must not fail the login.
	if err := controller.CompleteLogin(ctx, "code", session.State); err != nil {
		t.Fatalf("CompleteLogin with broken storage: %v", err)
	}

	// The token stays usable in-process even though reads now fail too.
	store.mu.Lock()
	store.getErr = errors.New("backend unreachable")
	store.mu.Unlock()

	token, ok := controller.CurrentAccessToken(ctx)
	if !ok || token != "at-1" {
		t.Errorf("CurrentAccessToken = %q, %v; want in-memory at-1, true", token, ok)
	}
}
