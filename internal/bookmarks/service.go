// Package bookmarks shapes the downstream bookmarks API behind the token
// lifecycle, including the one-shot refresh-and-retry on token expiry.
package bookmarks

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bookmarkd/bookmarkd/internal/auth"
	"github.com/bookmarkd/bookmarkd/internal/twitter"
)

// Author identifies the user who wrote a bookmarked post.
type Author struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Bookmark is the client-facing view of one bookmarked post.
type Bookmark struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	CreatedAt string         `json:"created_at"`
	Author    *Author        `json:"author"`
	URL       string         `json:"url"`
	Metrics   map[string]int `json:"metrics"`
}

// Result is one page of shaped bookmarks. Count always equals
// len(Bookmarks).
type Result struct {
	Count     int        `json:"count"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// Service proxies the downstream bookmarks API using the current access
// token.
type Service struct {
	auth *auth.Controller
	api  *twitter.Client
}

// NewService creates a Service.
func NewService(authController *auth.Controller, api *twitter.Client) *Service {
	return &Service{
		auth: authController,
		api:  api,
	}
}

// List fetches up to limit bookmarks in downstream order.
//
// A downstream 401 triggers at most one refresh followed by one full retry;
// a second 401 is surfaced as-is rather than refreshed again, so a genuinely
// revoked credential is reported instead of masked behind a retry loop.
func (s *Service) List(ctx context.Context, limit int) (*Result, error) {
	token, ok := s.auth.CurrentAccessToken(ctx)
	if !ok {
		return nil, auth.ErrNotAuthenticated
	}

	page, err := s.api.ListBookmarks(ctx, token, limit)
	if err != nil {
		if !s.shouldRefresh(ctx, err) {
			return nil, err
		}

		slog.InfoContext(ctx, "access token rejected downstream, refreshing")
		freshToken, refreshErr := s.auth.RefreshAccessToken(ctx)
		if refreshErr != nil {
			return nil, refreshErr
		}

		page, err = s.api.ListBookmarks(ctx, freshToken, limit)
		if err != nil {
			return nil, err
		}
	}

	return shape(page), nil
}

// shouldRefresh reports whether err is an expired-token 401 that a stored
// refresh token could recover from. Without a refresh token the original 401
// must be surfaced untouched.
func (s *Service) shouldRefresh(ctx context.Context, err error) bool {
	var apiErr *twitter.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return false
	}
	return s.auth.HasRefreshToken(ctx)
}

// shape maps the downstream page to the client view, preserving item order.
func shape(page *twitter.BookmarksPage) *Result {
	views := make([]Bookmark, 0, len(page.Data))
	for _, tweet := range page.Data {
		view := Bookmark{
			ID:        tweet.ID,
			Text:      tweet.Text,
			CreatedAt: tweet.CreatedAt,
			URL:       "https://x.com/i/status/" + tweet.ID,
			Metrics:   tweet.PublicMetrics,
		}
		if user, ok := page.AuthorByID(tweet.AuthorID); ok {
			view.Author = &Author{Username: user.Username, Name: user.Name}
		}
		views = append(views, view)
	}

	return &Result{
		Count:     len(views),
		Bookmarks: views,
	}
}
