package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeProvider struct {
	mu sync.Mutex

	signUp     func(SignUpParams) (*Session, error)
	signIn     func(email, password string) (*Session, error)
	refresh    func(token string) (*Session, error)
	exchange   func(code, verifier string) (*Session, error)
	signOutErr error

	refreshCalls int
	signOutToken string
	challenge    string
}

func (f *fakeProvider) SignUp(_ context.Context, p SignUpParams) (*Session, error) {
	return f.signUp(p)
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*Session, error) {
	return f.signIn(email, password)
}

func (f *fakeProvider) AuthorizeURL(provider, redirectTo, codeChallenge string) (string, error) {
	f.mu.Lock()
	f.challenge = codeChallenge
	f.mu.Unlock()
	return "https://auth.example/authorize?provider=" + provider, nil
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code, verifier string) (*Session, error) {
	return f.exchange(code, verifier)
}

func (f *fakeProvider) Refresh(_ context.Context, token string) (*Session, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	return f.refresh(token)
}

func (f *fakeProvider) SignOut(_ context.Context, accessToken string) error {
	f.signOutToken = accessToken
	return f.signOutErr
}

func session(uid, role string, exp time.Time) *Session {
	return &Session{
		AccessToken:  "at-" + uid,
		RefreshToken: "rt-" + uid,
		ExpiresAt:    exp,
		User:         User{ID: uid, Role: role},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) fn(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func TestClient_SignInEmitsEvent(t *testing.T) {
	p := &fakeProvider{signIn: func(email, password string) (*Session, error) {
		return session("u1", "citizen", time.Now().Add(time.Hour)), nil
	}}
	c := NewClient(p, nil)
	rec := &recorder{}
	c.OnAuthStateChange(rec.fn)

	s, err := c.SignInWithPassword(context.Background(), "a@b.co", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, []EventType{EventSignedIn}, rec.types())
	assert.Equal(t, "u1", rec.events[0].Session.User.ID)

	got, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", got.User.ID)
}

func TestClient_SignInError(t *testing.T) {
	boom := errors.New("Invalid login credentials")
	p := &fakeProvider{signIn: func(string, string) (*Session, error) { return nil, boom }}
	c := NewClient(p, nil)
	rec := &recorder{}
	c.OnAuthStateChange(rec.fn)

	_, err := c.SignInWithPassword(context.Background(), "a@b.co", "x")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rec.types())
	assert.Nil(t, c.Session())
}

func TestClient_GetSession_RefreshesExpired(t *testing.T) {
	p := &fakeProvider{refresh: func(token string) (*Session, error) {
		assert.Equal(t, "rt-u1", token)
		return session("u1", "police", time.Now().Add(time.Hour)), nil
	}}
	c := NewClient(p, session("u1", "police", time.Now().Add(-time.Minute)))
	rec := &recorder{}
	c.OnAuthStateChange(rec.fn)

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, p.refreshCalls)
	assert.Equal(t, []EventType{EventTokenRefreshed}, rec.types())
}

func TestClient_GetSession_RefreshFailureSignsOut(t *testing.T) {
	p := &fakeProvider{refresh: func(string) (*Session, error) { return nil, errors.New("revoked") }}
	c := NewClient(p, session("u1", "", time.Now().Add(-time.Minute)))
	rec := &recorder{}
	c.OnAuthStateChange(rec.fn)

	s, err := c.GetSession(context.Background())
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Nil(t, c.Session())
	assert.Equal(t, []EventType{EventSignedOut}, rec.types())
}

func TestClient_GetSession_NoRefreshNeeded(t *testing.T) {
	p := &fakeProvider{}
	c := NewClient(p, session("u1", "", time.Time{}))

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", s.User.ID)
	assert.Zero(t, p.refreshCalls)

	empty := NewClient(p, nil)
	s, err = empty.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestClient_SignUpPendingConfirmation(t *testing.T) {
	var got SignUpParams
	p := &fakeProvider{signUp: func(sp SignUpParams) (*Session, error) {
		got = sp
		return nil, nil
	}}
	c := NewClient(p, nil)
	rec := &recorder{}
	c.OnAuthStateChange(rec.fn)

	s, err := c.SignUp(context.Background(), SignUpParams{Email: "a@b.co", Password: "secret", FullName: "Asha", Role: "citizen"})
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, "Asha", got.FullName)
	assert.Empty(t, rec.types())
}

func TestClient_OAuthRoundTrip(t *testing.T) {
	p := &fakeProvider{}
	p.exchange = func(code, verifier string) (*Session, error) {
		assert.Equal(t, "the-code", code)
		assert.Equal(t, p.challenge, oauth2.S256ChallengeFromVerifier(verifier))
		return session("u2", "citizen", time.Now().Add(time.Hour)), nil
	}
	c := NewClient(p, nil)

	u, verifier, err := c.SignInWithOAuth("google", "http://localhost/auth/callback")
	require.NoError(t, err)
	assert.Contains(t, u, "provider=google")
	assert.Len(t, verifier, 43)

	s, err := c.ExchangeCodeForSession(context.Background(), "the-code", verifier)
	require.NoError(t, err)
	assert.Equal(t, "u2", s.User.ID)
}

func TestClient_SignOutClearsEvenOnError(t *testing.T) {
	p := &fakeProvider{signOutErr: errors.New("network")}
	c := NewClient(p, session("u1", "", time.Time{}))
	rec := &recorder{}
	c.OnAuthStateChange(rec.fn)

	err := c.SignOut(context.Background())
	require.Error(t, err)
	assert.Equal(t, "at-u1", p.signOutToken)
	assert.Nil(t, c.Session())
	assert.Equal(t, []EventType{EventSignedOut}, rec.types())

	// already signed out: nothing to do
	require.NoError(t, c.SignOut(context.Background()))
	assert.Len(t, rec.types(), 1)
}

func TestSubscription_Unsubscribe(t *testing.T) {
	p := &fakeProvider{signIn: func(string, string) (*Session, error) {
		return session("u1", "", time.Time{}), nil
	}}
	c := NewClient(p, nil)
	a, b := &recorder{}, &recorder{}
	subA := c.OnAuthStateChange(a.fn)
	c.OnAuthStateChange(b.fn)

	subA.Unsubscribe()
	subA.Unsubscribe()

	_, err := c.SignInWithPassword(context.Background(), "a@b.co", "secret")
	require.NoError(t, err)
	assert.Empty(t, a.types())
	assert.Equal(t, []EventType{EventSignedIn}, b.types())
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Session{}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now.Add(5 * time.Second)}).Expired(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
}

func TestUser_IsPolice(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.IsPolice())
	assert.False(t, (&User{Role: "citizen"}).IsPolice())
	assert.False(t, (&User{Role: "Police"}).IsPolice())
	assert.True(t, (&User{Role: "police"}).IsPolice())
}
