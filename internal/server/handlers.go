package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bookmarkd/bookmarkd/internal/auth"
	"github.com/bookmarkd/bookmarkd/internal/bookmarks"
	"github.com/bookmarkd/bookmarkd/internal/oauth"
	"github.com/bookmarkd/bookmarkd/internal/twitter"
)

const defaultBookmarksLimit = 10

// callbackSuccessHTML closes the browser tab after a completed login.
const callbackSuccessHTML = `<html>
  <body>
    <h1>Authentication successful</h1>
    <p>You can now use the /bookmarks endpoint.</p>
    <p>Return to your terminal.</p>
    <script>window.close();</script>
  </body>
</html>
`

type handlers struct {
	auth      *auth.Controller
	bookmarks *bookmarks.Service
}

// login redirects to the provider authorization URL for a fresh PKCE session.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.auth.BeginLogin(), http.StatusFound)
}

// callback completes the login by exchanging the authorization code.
func (h *handlers) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSONError(ctx, w, "no code provided", http.StatusBadRequest)
		return
	}
	state := r.URL.Query().Get("state")

	if err := h.auth.CompleteLogin(ctx, code, state); err != nil {
		switch {
		case errors.Is(err, auth.ErrNoLoginSession), errors.Is(err, auth.ErrStateMismatch):
			slog.WarnContext(ctx, "rejected oauth callback", "error", err)
			writeJSONError(ctx, w, err.Error(), http.StatusBadRequest)
		default:
			slog.ErrorContext(ctx, "token exchange failed", "error", err)
			var exchangeErr *oauth.ExchangeError
			if errors.As(err, &exchangeErr) {
				writeJSONErrorDetails(ctx, w, "token exchange failed", exchangeErr.Payload, http.StatusInternalServerError)
				return
			}
			writeJSONError(ctx, w, "token exchange failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(callbackSuccessHTML))
}

// listBookmarks proxies the downstream bookmarks call.
func (h *handlers) listBookmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultBookmarksLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSONError(ctx, w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	result, err := h.bookmarks.List(ctx, limit)
	if err != nil {
		h.writeBookmarksError(w, r, err)
		return
	}

	writeJSON(ctx, w, result, http.StatusOK)
}

// writeBookmarksError maps service failures onto the wire: auth failures to
// 401, downstream failures to the downstream status with the payload
// attached.
func (h *handlers) writeBookmarksError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	if errors.Is(err, auth.ErrNotAuthenticated) {
		writeJSONError(ctx, w, "Not authenticated. Visit /login first.", http.StatusUnauthorized)
		return
	}

	var refreshErr *oauth.RefreshError
	if errors.As(err, &refreshErr) {
		slog.ErrorContext(ctx, "token refresh failed", "error", err)
		writeJSONErrorDetails(ctx, w, "session expired, visit /login again", refreshErr.Payload, http.StatusUnauthorized)
		return
	}

	var apiErr *twitter.APIError
	if errors.As(err, &apiErr) {
		slog.ErrorContext(ctx, "bookmarks fetch failed", "status", apiErr.StatusCode, "error", err)
		writeJSONErrorDetails(ctx, w, "failed to fetch bookmarks", apiErr.Payload, apiErr.StatusCode)
		return
	}

	slog.ErrorContext(ctx, "bookmarks fetch failed", "error", err)
	writeJSONError(ctx, w, "failed to fetch bookmarks", http.StatusInternalServerError)
}

// status reports liveness; authenticated is derived from a live token read,
// not a cached flag.
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	_, authenticated := h.auth.CurrentAccessToken(ctx)
	writeJSON(ctx, w, map[string]any{
		"authenticated":      authenticated,
		"server":             "running",
		"bookmarks_endpoint": "/bookmarks?limit=10",
	}, http.StatusOK)
}
