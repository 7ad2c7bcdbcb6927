package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStoreReadAfterWrite(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	for key, value := range map[string]string{
		KeyAccessToken:  "at-1",
		KeyRefreshToken: "rt-1",
	} {
		if err := store.Set(ctx, key, value); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
		if got != value {
			t.Errorf("Get(%s) = %q, want %q", key, got, value)
		}
	}
}

func TestFileStoreOverwritePreservesOtherKey(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, KeyAccessToken, "at-1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, KeyRefreshToken, "rt-1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, KeyAccessToken, "at-2"); err != nil {
		t.Fatal(err)
	}

	access, err := store.Get(ctx, KeyAccessToken)
	if err != nil || access != "at-2" {
		t.Errorf("access token = %q, %v; want at-2", access, err)
	}
	refresh, err := store.Get(ctx, KeyRefreshToken)
	if err != nil || refresh != "rt-1" {
		t.Errorf("refresh token = %q, %v; want rt-1", refresh, err)
	}
}

func TestFileStoreMissingKey(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, KeyAccessToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on empty store = %v, want ErrNotFound", err)
	}

	// A file holding only one key still reports the other as missing.
	if err := store.Set(ctx, KeyAccessToken, "at-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, KeyRefreshToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing key = %v, want ErrNotFound", err)
	}
}

func TestFileStoreUnknownKey(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "id_token"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := store.Set(ctx, "id_token", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestFileStoreSecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Set(context.Background(), KeyAccessToken, "at-1"); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file permissions = %04o, want 0600", perm)
	}
}
