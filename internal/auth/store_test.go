package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileStore(path)
	ctx := context.Background()

	tok := &oauth2.Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
	}

	if err := store.Save(ctx, tok); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got.AccessToken != tok.AccessToken {
		t.Errorf("Load() access token = %q, want %q", got.AccessToken, tok.AccessToken)
	}
	if got.RefreshToken != tok.RefreshToken {
		t.Errorf("Load() refresh token = %q, want %q", got.RefreshToken, tok.RefreshToken)
	}
	if !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("Load() expiry = %v, want %v", got.Expiry, tok.Expiry)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("Load() error = %v, want ErrNoCredential", err)
	}
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileStore(path).Load(context.Background())
	if err == nil {
		t.Error("Load() expected error for corrupt token file, got nil")
	}
	if errors.Is(err, ErrNoCredential) {
		t.Error("Load() corrupt file must not classify as missing credential")
	}
}

func TestFileStoreSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "token.json")
	store := NewFileStore(path)

	if err := store.Save(context.Background(), &oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("token file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file permissions = %o, want 0600", perm)
	}
}

func TestFileStoreSaveNil(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save(nil) expected error, got nil")
	}
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileStore(path)
	ctx := context.Background()

	if err := store.Save(ctx, &oauth2.Token{AccessToken: "first"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, &oauth2.Token{AccessToken: "second"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "second" {
		t.Errorf("Load() after overwrite = %q, want %q", got.AccessToken, "second")
	}
}
