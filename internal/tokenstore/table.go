package tokenstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TableStore persists tokens in a remote relational table reached over HTTP,
// speaking the PostgREST dialect (Supabase and compatible services). The
// table needs columns key (primary), value and updated_at.
type TableStore struct {
	tableURL string
	apiKey   string

	httpClient *http.Client
}

// Compile-time check to ensure TableStore implements TokenStore
var _ TokenStore = (*TableStore)(nil)

// NewTableStore creates a TableStore for the given table endpoint, e.g.
// https://project.supabase.co/rest/v1/tokens.
func NewTableStore(tableURL, apiKey string) (*TableStore, error) {
	if tableURL == "" {
		return nil, fmt.Errorf("table URL cannot be empty")
	}
	if _, err := url.Parse(tableURL); err != nil {
		return nil, fmt.Errorf("invalid table URL: %w", err)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key cannot be empty")
	}

	return &TableStore{
		tableURL: tableURL,
		apiKey:   apiKey,
		httpClient: &http.Client{
			// Storage shares the request path; an unresponsive backend must
			// not hang inbound requests indefinitely.
			Timeout: 10 * time.Second,
		},
	}, nil
}

// tableRow is the wire form of one persisted token.
type tableRow struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Get returns the token stored in the row matching key.
func (t *TableStore) Get(ctx context.Context, key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	reqURL := t.tableURL + "?key=eq." + url.QueryEscape(key) + "&select=value"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	t.authorize(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("table store read: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("table store read: status %d: %s", resp.StatusCode, body)
	}

	var rows []tableRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return "", fmt.Errorf("table store read: %w", err)
	}
	if len(rows) == 0 || rows[0].Value == "" {
		return "", ErrNotFound
	}
	return rows[0].Value, nil
}

// Set upserts the row for key. Prefer: resolution=merge-duplicates turns the
// insert into an atomic upsert on the key column, so repeated writes to an
// existing key succeed.
func (t *TableStore) Set(ctx context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}

	payload, err := json.Marshal([]tableRow{{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tableURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	t.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("table store write: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("table store write: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func (t *TableStore) authorize(req *http.Request) {
	req.Header.Set("apikey", t.apiKey)
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
}
