package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Client holds one signed-in state on top of a Provider and notifies
// subscribers whenever it changes. It is safe for concurrent use; listeners
// are invoked outside the internal lock, in registration order.
type Client struct {
	provider Provider
	now      func() time.Time

	mu        sync.Mutex
	session   *Session
	listeners map[int]func(Event)
	order     []int
	nextID    int
}

// NewClient returns a Client. initial may be nil (signed out).
func NewClient(provider Provider, initial *Session) *Client {
	return &Client{
		provider:  provider,
		now:       time.Now,
		session:   initial,
		listeners: make(map[int]func(Event)),
	}
}

// Subscription is returned by OnAuthStateChange.
type Subscription struct {
	once sync.Once
	stop func()
}

// Unsubscribe stops event delivery. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.stop)
}

// OnAuthStateChange registers fn for every later session change.
func (c *Client) OnAuthStateChange(fn func(Event)) *Subscription {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	return &Subscription{stop: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
		for i, v := range c.order {
			if v == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}}
}

func (c *Client) emit(ev Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// set swaps the current session under the lock and returns a copy for the
// event payload.
func (c *Client) set(s *Session) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// Session returns a copy of the current session without contacting the
// backend. The result is nil when signed out.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	cp := *c.session
	return &cp
}

// GetSession returns the current session, refreshing it first when the access
// token has expired. A failed refresh signs the client out.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	cur := c.Session()
	if cur == nil || !cur.Expired(c.now()) {
		return cur, nil
	}

	if cur.RefreshToken == "" {
		c.set(nil)
		c.emit(Event{Type: EventSignedOut})
		return nil, nil
	}

	next, err := c.provider.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		c.set(nil)
		c.emit(Event{Type: EventSignedOut})
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	out := c.set(next)
	c.emit(Event{Type: EventTokenRefreshed, Session: out})
	return c.Session(), nil
}

func (c *Client) signedIn(s *Session) (*Session, error) {
	if s == nil {
		return nil, errors.New("auth service returned no session")
	}
	out := c.set(s)
	c.emit(Event{Type: EventSignedIn, Session: out})
	return c.Session(), nil
}

// SignUp registers a new account. When the backend returns a session the
// client becomes signed in; a nil session means confirmation is pending.
func (c *Client) SignUp(ctx context.Context, p SignUpParams) (*Session, error) {
	s, err := c.provider.SignUp(ctx, p)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	return c.signedIn(s)
}

// SignInWithPassword signs in with email and password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	s, err := c.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.signedIn(s)
}

// SignInWithOAuth starts an external-provider sign-in. The caller sends the
// user to the returned URL and keeps verifier for ExchangeCodeForSession.
func (c *Client) SignInWithOAuth(provider, redirectTo string) (authURL, verifier string, err error) {
	verifier, challenge, err := NewPKCE()
	if err != nil {
		return "", "", err
	}
	authURL, err = c.provider.AuthorizeURL(provider, redirectTo, challenge)
	if err != nil {
		return "", "", err
	}
	return authURL, verifier, nil
}

// ExchangeCodeForSession completes an external-provider sign-in.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, verifier string) (*Session, error) {
	s, err := c.provider.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	return c.signedIn(s)
}

// SignOut revokes the session remotely and clears it locally. The local state
// is cleared even when the remote call fails.
func (c *Client) SignOut(ctx context.Context) error {
	cur := c.Session()
	if cur == nil {
		return nil
	}

	err := c.provider.SignOut(ctx, cur.AccessToken)
	c.set(nil)
	c.emit(Event{Type: EventSignedOut})
	return err
}
