// Package twitter is a minimal client for the X API v2 bookmarks surface.
// The API's own pagination and field semantics are passed through untouched.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the X API origin.
const DefaultBaseURL = "https://api.twitter.com"

const userAgent = "bookmarkd/1.0"

// APIError carries a non-2xx downstream response verbatim for diagnostics.
type APIError struct {
	StatusCode int
	Payload    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("downstream API returned status %d: %s", e.StatusCode, e.Payload)
}

// Tweet is one bookmarked post as returned by the API.
type Tweet struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	AuthorID      string         `json:"author_id"`
	CreatedAt     string         `json:"created_at"`
	PublicMetrics map[string]int `json:"public_metrics"`
}

// User is an expanded author record from the includes section.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// BookmarksPage is one page of bookmarks with author expansions.
type BookmarksPage struct {
	Data     []Tweet `json:"data"`
	Includes struct {
		Users []User `json:"users"`
	} `json:"includes"`
}

// AuthorByID resolves an expanded author record, if the page includes one.
func (p *BookmarksPage) AuthorByID(id string) (User, bool) {
	for _, u := range p.Includes.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// Client calls the X API v2 with a caller-supplied bearer token.
type Client struct {
	baseURL string
	// userID of the bookmarks owner; resolved via /2/users/me when empty.
	userID string

	httpClient *http.Client
}

// NewClient creates a Client. baseURL falls back to the public X API origin;
// userID is optional.
func NewClient(baseURL, userID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ListBookmarks fetches up to limit bookmarks for the authenticated user,
// requesting author expansion and the created_at / public_metrics tweet
// fields. Items are returned in the API's own order.
func (c *Client) ListBookmarks(ctx context.Context, accessToken string, limit int) (*BookmarksPage, error) {
	userID := c.userID
	if userID == "" {
		resolved, err := c.resolveUserID(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		userID = resolved
	}

	query := url.Values{}
	query.Set("max_results", strconv.Itoa(limit))
	query.Set("tweet.fields", "created_at,public_metrics")
	query.Set("user.fields", "username,name")
	query.Set("expansions", "author_id")

	reqURL := c.baseURL + "/2/users/" + url.PathEscape(userID) + "/bookmarks?" + query.Encode()

	var page BookmarksPage
	if err := c.getJSON(ctx, reqURL, accessToken, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// resolveUserID looks up the id of the user the token belongs to. Bookmarks
// can only be listed by numeric user id, not by a "me" alias.
func (c *Client) resolveUserID(ctx context.Context, accessToken string) (string, error) {
	var me struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/2/users/me", accessToken, &me); err != nil {
		return "", err
	}
	if me.Data.ID == "" {
		return "", fmt.Errorf("user lookup returned no id")
	}
	return me.Data.ID, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downstream request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading downstream response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Payload: json.RawMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding downstream response: %w", err)
	}
	return nil
}
