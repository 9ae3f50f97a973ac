package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Backend is a durable key-value store holding credential fields. A read
// succeeds if the backend has a live value for the key.
type Backend interface {
	Set(key, value string) error
	Get(key string) (string, bool)
	Delete(key string) error
}

type fileEntry struct {
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// fileBackend stores entries as a JSON object in a single file with owner-only
// permissions. A non-zero ttl stamps each write with an expiry honored on read,
// mirroring the 7-day cookie lifetime of the original client.
type fileBackend struct {
	mu   sync.Mutex
	path string
	ttl  time.Duration
	nowF func() time.Time
}

// NewFileBackend builds a file-backed store at path. ttl of zero disables
// expiry semantics.
func NewFileBackend(path string, ttl time.Duration) Backend {
	return &fileBackend{path: path, ttl: ttl, nowF: time.Now}
}

func (b *fileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.read()
	entry := fileEntry{Value: value}
	if b.ttl > 0 {
		exp := b.nowF().Add(b.ttl)
		entry.ExpiresAt = &exp
	}
	entries[key] = entry
	return b.write(entries)
}

func (b *fileBackend) Get(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.read()[key]
	if !ok {
		return "", false
	}
	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(b.nowF()) {
		return "", false
	}
	return entry.Value, true
}

func (b *fileBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.read()
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	if len(entries) == 0 {
		if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return b.write(entries)
}

// read returns the stored entries; a missing or corrupt file reads as empty.
func (b *fileBackend) read() map[string]fileEntry {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return map[string]fileEntry{}
	}
	var entries map[string]fileEntry
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		return map[string]fileEntry{}
	}
	return entries
}

func (b *fileBackend) write(entries map[string]fileEntry) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o600)
}
