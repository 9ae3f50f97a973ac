// Package session holds the in-memory authentication state for the lifetime
// of the process. The Manager is the sole writer of that state; everything
// else reads snapshots.
package session

import (
	"sync"

	"github.com/docu-man/documan/internal/credstore"
	"github.com/docu-man/documan/internal/identity"
)

// State is a point-in-time view of the authentication state. Loading is true
// until Initialize has run; consumers must treat it as "decision pending",
// not "unauthenticated".
type State struct {
	IsAuthenticated bool
	Token           string
	User            identity.Profile
	Loading         bool
}

// Manager exposes login/logout operations and writes through to the
// credential store so the two never disagree for longer than a lock hold.
type Manager struct {
	mu    sync.RWMutex
	store *credstore.Store
	state State
}

// NewManager builds a Manager over the given credential store. The state
// starts in loading until Initialize is called.
func NewManager(store *credstore.Store) *Manager {
	return &Manager{store: store, state: State{Loading: true}}
}

// Initialize reads the credential store once and settles the state. Called
// exactly once at startup, before any authenticated operation.
func (m *Manager) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cred, ok := m.store.Load(); ok {
		m.state = State{IsAuthenticated: true, Token: cred.Token, User: cred.User}
	} else {
		m.state = State{}
	}
}

// Login persists the credential and flips the in-memory state. The store
// write happens first, so by the time Login returns any subsequent gateway
// request is authenticated. No network call is made here; the OTP round-trip
// already happened.
func (m *Manager) Login(token string, user identity.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(token, user); err != nil {
		return err
	}
	m.state = State{IsAuthenticated: true, Token: token, User: user}
	return nil
}

// Logout clears the credential store and resets the in-memory state. This is
// the single authoritative erasure path; the gateway's forced logout on a
// 401 goes through it too.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.store.Clear()
	m.state = State{}
	return err
}

// State returns a snapshot of the current authentication state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
