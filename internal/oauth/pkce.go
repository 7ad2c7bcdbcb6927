package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Session holds the PKCE verifier/challenge pair and the anti-CSRF state
// nonce for one authorization handshake.
type Session struct {
	// ID correlates login and callback log lines; never sent to the provider.
	ID string

	CodeVerifier  string
	CodeChallenge string
	State         string
}

// SessionManager owns the single current PKCE session. Starting a new login
// replaces any in-flight session (last writer wins); at most one concurrent
// authorization handshake is supported.
type SessionManager struct {
	mu      sync.Mutex
	current *Session
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Begin generates a fresh session and makes it current, invalidating any
// previously issued session for exchange purposes.
func (m *SessionManager) Begin() Session {
	verifier := oauth2.GenerateVerifier()
	session := Session{
		ID:            uuid.NewString(),
		CodeVerifier:  verifier,
		CodeChallenge: oauth2.S256ChallengeFromVerifier(verifier),
		State:         newState(),
	}

	m.mu.Lock()
	m.current = &session
	m.mu.Unlock()

	return session
}

// Current returns the session issued by the most recent Begin, if any.
func (m *SessionManager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// newState returns a 16-byte random nonce, hex encoded.
func newState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic("state nonce generation failed: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
