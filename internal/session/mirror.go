// Package session mirrors the auth client's state into a snapshot that
// handlers read: who is signed in, whether they are police, and whether the
// first answer has arrived yet.
package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
)

// Source is the part of auth.Client the mirror needs.
type Source interface {
	GetSession(ctx context.Context) (*auth.Session, error)
	OnAuthStateChange(fn func(auth.Event)) *auth.Subscription
}

// Snapshot is a value copy of the mirrored state.
type Snapshot struct {
	User     *auth.User
	IsPolice bool
	Loading  bool
}

// Authenticated reports whether an identity is present.
func (s Snapshot) Authenticated() bool {
	return s.User != nil && s.User.ID != ""
}

// UserID returns the identity, or "" when signed out.
func (s Snapshot) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Mirror keeps the latest Snapshot. Writes come from the subscription and
// the initial fetch; reads may come from any goroutine.
type Mirror struct {
	src Source

	mu       sync.RWMutex
	snap     Snapshot
	sawEvent bool

	sub       *auth.Subscription
	closeOnce sync.Once
}

// NewMirror returns a mirror in the loading state. Call Start to populate it.
func NewMirror(src Source) *Mirror {
	return &Mirror{src: src, snap: Snapshot{Loading: true}}
}

// Start subscribes to session changes and then fetches the current session
// once. The fetch error is returned and leaves the mirror loading; later
// events still update it. No retry is attempted.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	m.sub = m.src.OnAuthStateChange(m.onEvent)
	m.mu.Unlock()

	s, err := m.src.GetSession(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// an event that arrived during the fetch is newer
	if m.sawEvent {
		return nil
	}
	m.snap = derive(s)
	return nil
}

func (m *Mirror) onEvent(ev auth.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sawEvent = true
	m.snap = derive(ev.Session)
}

func derive(s *auth.Session) Snapshot {
	if s == nil || s.User.ID == "" {
		return Snapshot{}
	}
	u := s.User
	return Snapshot{User: &u, IsPolice: u.IsPolice()}
}

// Snapshot returns a copy of the current state.
func (m *Mirror) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.snap
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// Close releases the subscription. It is safe to call more than once.
func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		m.mu.RLock()
		sub := m.sub
		m.mu.RUnlock()
		if sub != nil {
			sub.Unsubscribe()
		}
	})
}
