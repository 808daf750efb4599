package web

import (
	"context"
	"sync"
	"time"
)

// Tokens is the persisted part of a visitor's session. The identity is
// recovered from the access token's claims.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenStore keeps visitor tokens across janitor evictions and restarts.
type TokenStore interface {
	Load(ctx context.Context, visitorID string) (Tokens, bool, error)
	Save(ctx context.Context, visitorID string, t Tokens, ttl time.Duration) error
	Delete(ctx context.Context, visitorID string) error
}

type memoryEntry struct {
	tokens  Tokens
	expires time.Time
}

// MemoryStore is a process-local TokenStore.
type MemoryStore struct {
	mu  sync.Mutex
	m   map[string]memoryEntry
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, id string) (Tokens, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	if !ok {
		return Tokens{}, false, nil
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		delete(s.m, id)
		return Tokens{}, false, nil
	}
	return e.tokens, true, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, t Tokens, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{tokens: t}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.m[id] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}
