package credstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docu-man/documan/internal/identity"
	"github.com/docu-man/documan/internal/logging"
)

func testProfile() identity.Profile {
	return identity.Profile{ID: "u1", Name: "Asha", Mobile: "9876543210", Role: "user"}
}

func TestStoreSaveLoadRoundtrip(t *testing.T) {
	store := Open(t.TempDir(), time.Hour, logging.Discard())

	if _, ok := store.Load(); ok {
		t.Fatal("expected empty store before save")
	}

	if err := store.Save("tok-123", testProfile()); err != nil {
		t.Fatalf("save: %v", err)
	}

	cred, ok := store.Load()
	if !ok {
		t.Fatal("expected credential after save")
	}
	if cred.Token != "tok-123" {
		t.Fatalf("token = %q, want tok-123", cred.Token)
	}
	if cred.User != testProfile() {
		t.Fatalf("user = %+v, want %+v", cred.User, testProfile())
	}
}

func TestStoreClearIsIdempotent(t *testing.T) {
	store := Open(t.TempDir(), time.Hour, logging.Discard())

	if err := store.Save("tok", testProfile()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := store.Load(); ok {
		t.Fatal("expected empty store after clear")
	}
	// Clearing an already-empty store succeeds.
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestStoreFallsBackWhenPrimaryLost(t *testing.T) {
	dir := t.TempDir()
	primaryPath := filepath.Join(dir, "credentials.json")
	primary := NewFileBackend(primaryPath, time.Hour)
	fallback := NewFileBackend(filepath.Join(dir, "credentials.fallback.json"), 0)
	store := New(primary, fallback, logging.Discard())

	if err := store.Save("tok", testProfile()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.Remove(primaryPath); err != nil {
		t.Fatalf("remove primary: %v", err)
	}

	cred, ok := store.Load()
	if !ok {
		t.Fatal("expected fallback to serve the credential")
	}
	if cred.Token != "tok" {
		t.Fatalf("token = %q, want tok", cred.Token)
	}
}

func TestStoreCorruptProfileReadsAsAbsent(t *testing.T) {
	dir := t.TempDir()
	primary := NewFileBackend(filepath.Join(dir, "credentials.json"), 0)
	fallback := NewFileBackend(filepath.Join(dir, "credentials.fallback.json"), 0)
	store := New(primary, fallback, logging.Discard())

	for _, b := range []Backend{primary, fallback} {
		if err := b.Set("authToken", "tok"); err != nil {
			t.Fatalf("set token: %v", err)
		}
		if err := b.Set("user", "{not json"); err != nil {
			t.Fatalf("set user: %v", err)
		}
	}

	if _, ok := store.Load(); ok {
		t.Fatal("expected corrupt profile to read as absent")
	}
	if _, ok := store.Token(); !ok {
		t.Fatal("token alone should still be readable")
	}
}

func TestFileBackendHonorsExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	b := NewFileBackend(path, time.Hour).(*fileBackend)

	now := time.Now()
	b.nowF = func() time.Time { return now }
	if err := b.Set("authToken", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, ok := b.Get("authToken"); !ok {
		t.Fatal("expected live value before expiry")
	}

	b.nowF = func() time.Time { return now.Add(time.Hour + time.Second) }
	if _, ok := b.Get("authToken"); ok {
		t.Fatal("expected value to expire")
	}
}

func TestFileBackendCorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	b := NewFileBackend(path, 0)
	if _, ok := b.Get("authToken"); ok {
		t.Fatal("expected corrupt file to read as empty")
	}
	// A write after corruption replaces the file.
	if err := b.Set("authToken", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok := b.Get("authToken"); !ok || v != "tok" {
		t.Fatalf("get = %q,%v want tok,true", v, ok)
	}
}

func TestFileBackendDeleteRemovesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	b := NewFileBackend(path, 0)

	if err := b.Set("authToken", "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := b.Delete("authToken"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err = %v", err)
	}
}
