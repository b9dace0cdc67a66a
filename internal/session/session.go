package session

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrUnauthenticated    = errors.New("user not authenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Identity is the authenticated principal. Its UID doubles as the document
// id of the matching users/{uid} profile.
type Identity struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
}

// Authenticator is the auth provider as seen by this layer.
type Authenticator interface {
	CreateIdentity(ctx context.Context, email, password string) (*Identity, error)
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	// DeleteIdentity compensates a registration whose profile write failed.
	DeleteIdentity(ctx context.Context, uid string) error
}

// Manager holds the single current identity and fans out change events to
// subscribers. It is injected into everything that needs identity instead of
// living as a process-wide global.
type Manager struct {
	auth Authenticator

	mu      sync.Mutex
	current *Identity
	subs    map[int]func(*Identity)
	nextSub int
}

func NewManager(auth Authenticator) *Manager {
	return &Manager{auth: auth, subs: map[int]func(*Identity){}}
}

func (m *Manager) Authenticator() Authenticator { return m.auth }

// Current returns the signed-in identity, or nil.
func (m *Manager) Current() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetCurrent replaces the current identity and notifies subscribers.
func (m *Manager) SetCurrent(id *Identity) {
	m.mu.Lock()
	m.current = id
	subs := make([]func(*Identity), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(id)
	}
}

func (m *Manager) SignOut() {
	m.SetCurrent(nil)
}

// OnChange registers a session-change callback and returns its unsubscribe.
func (m *Manager) OnChange(fn func(*Identity)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}
