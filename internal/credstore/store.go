// Package credstore persists the session token and user profile across runs,
// redundantly in a primary and a fallback backend so a read succeeds if
// either side still holds the value.
package credstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docu-man/documan/internal/identity"
)

const (
	tokenKey = "authToken"
	userKey  = "user"
)

// Credential pairs the opaque session token with the user profile it was
// issued for.
type Credential struct {
	Token string
	User  identity.Profile
}

// Store composes two backends with a write-both / read-fallback policy.
type Store struct {
	mu       sync.Mutex
	primary  Backend
	fallback Backend
	logger   *slog.Logger
}

// New builds a Store over the given backends.
func New(primary, fallback Backend, logger *slog.Logger) *Store {
	return &Store{primary: primary, fallback: fallback, logger: logger}
}

// Open builds the default dual file store. The primary lives under the user
// config directory with a write expiry; the fallback under the home directory
// without one. A non-empty dir overrides both locations (used by tests and
// the DOCUMAN_CREDENTIAL_DIR setting).
func Open(dir string, ttl time.Duration, logger *slog.Logger) *Store {
	primaryDir, fallbackDir := dir, dir
	if dir == "" {
		if cfgDir, err := os.UserConfigDir(); err == nil {
			primaryDir = filepath.Join(cfgDir, "documan")
		} else {
			primaryDir = "."
		}
		if home, err := os.UserHomeDir(); err == nil {
			fallbackDir = filepath.Join(home, ".documan")
		} else {
			fallbackDir = primaryDir
		}
	}
	primary := NewFileBackend(filepath.Join(primaryDir, "credentials.json"), ttl)
	fallback := NewFileBackend(filepath.Join(fallbackDir, "credentials.fallback.json"), 0)
	return New(primary, fallback, logger)
}

// Save writes the token and serialized profile to the primary backend and
// mirrors them into the fallback. A fallback failure is logged, not returned;
// the primary write is authoritative.
func (s *Store) Save(token string, user identity.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.primary.Set(tokenKey, token); err != nil {
		return err
	}
	if err := s.primary.Set(userKey, string(profile)); err != nil {
		return err
	}
	if err := s.fallback.Set(tokenKey, token); err != nil {
		s.log("mirror token to fallback store", err)
	}
	if err := s.fallback.Set(userKey, string(profile)); err != nil {
		s.log("mirror profile to fallback store", err)
	}
	return nil
}

// Load returns the stored credential. Each field independently falls back to
// the secondary backend; a credential is present only when both the token and
// a decodable profile exist. A profile that fails to decode reads as absent.
func (s *Store) Load() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.get(tokenKey)
	if !ok || token == "" {
		return Credential{}, false
	}
	raw, ok := s.get(userKey)
	if !ok {
		return Credential{}, false
	}
	var user identity.Profile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.log("decode stored profile", err)
		return Credential{}, false
	}
	return Credential{Token: token, User: user}, true
}

// Token returns just the stored token, primary first. Used by the request
// middleware on every outgoing call.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.get(tokenKey)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Clear deletes both keys from both backends. Repeated calls are no-ops.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, backend := range []Backend{s.primary, s.fallback} {
		for _, key := range []string{tokenKey, userKey} {
			if err := backend.Delete(key); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Store) get(key string) (string, bool) {
	if v, ok := s.primary.Get(key); ok {
		return v, true
	}
	return s.fallback.Get(key)
}

func (s *Store) log(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, "error", err)
	}
}
