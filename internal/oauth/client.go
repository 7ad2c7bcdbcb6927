package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Default X (Twitter) OAuth2 endpoints and scopes.
const (
	DefaultAuthURL  = "https://twitter.com/i/oauth2/authorize"
	DefaultTokenURL = "https://api.twitter.com/2/oauth2/token"
)

// DefaultScopes are the scopes needed to read the authenticated user's
// bookmarks.
var DefaultScopes = []string{"tweet.read", "users.read", "bookmark.read"}

// Config describes the registered OAuth2 client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

// TokenPair carries the result of a successful exchange or refresh. Either
// field may be empty (providers are not required to rotate refresh tokens).
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ExchangeError reports a failed authorization-code exchange. Codes are
// single-use by provider contract, so callers must restart the login rather
// than retry.
type ExchangeError struct {
	StatusCode int
	Payload    json.RawMessage

	cause error
}

func (e *ExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange rejected with status %d: %s", e.StatusCode, e.Payload)
	}
	return fmt.Sprintf("token exchange failed: %v", e.cause)
}

func (e *ExchangeError) Unwrap() error { return e.cause }

// RefreshError reports a failed refresh-token grant. A rejected refresh token
// is terminal: a full re-login is required.
type RefreshError struct {
	StatusCode int
	Payload    json.RawMessage

	cause error
}

func (e *RefreshError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token refresh rejected with status %d: %s", e.StatusCode, e.Payload)
	}
	return fmt.Sprintf("token refresh failed: %v", e.cause)
}

func (e *RefreshError) Unwrap() error { return e.cause }

// Client performs code and refresh-token exchanges against the provider's
// token endpoint.
type Client struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewClient creates a Client from the registered application credentials.
// Empty endpoint and scope fields fall back to the X defaults.
func NewClient(cfg Config) *Client {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
				// X expects client credentials in the form body, not basic auth
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AuthCodeURL builds the provider authorization URL for the given PKCE
// session (response_type=code, code_challenge_method=S256).
func (c *Client) AuthCodeURL(session Session) string {
	return c.conf.AuthCodeURL(session.State, oauth2.S256ChallengeOption(session.CodeVerifier))
}

// ExchangeCode posts the authorization-code grant with the PKCE verifier.
// Failures are reported as *ExchangeError; the provider's error payload is
// attached when available. Never retry with the same code.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (TokenPair, error) {
	token, err := c.conf.Exchange(c.oauthContext(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		status, payload := providerError(err)
		return TokenPair{}, &ExchangeError{StatusCode: status, Payload: payload, cause: err}
	}

	return TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}

// Refresh posts the refresh-token grant. The returned pair contains the
// rotated refresh token when the provider issues one, otherwise the original.
// Retrying after a transient network failure with the same refresh token is
// safe.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	source := c.conf.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		status, payload := providerError(err)
		return TokenPair{}, &RefreshError{StatusCode: status, Payload: payload, cause: err}
	}

	return TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}

// oauthContext injects the bounded HTTP client; the oauth2 package picks it
// up via the oauth2.HTTPClient context key.
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// providerError extracts the provider's HTTP status and error payload from an
// oauth2 retrieve error, when the failure got that far.
func providerError(err error) (int, json.RawMessage) {
	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) {
		return 0, nil
	}

	status := 0
	if rErr.Response != nil {
		status = rErr.Response.StatusCode
	}
	return status, json.RawMessage(rErr.Body)
}
