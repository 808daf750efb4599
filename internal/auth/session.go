// Package auth models identities and sessions issued by the managed auth
// service, and provides Client, a stateful session holder with a change
// stream.
package auth

import (
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/common"
)

// expiryLeeway makes a token count as expired slightly before its exp claim
// so that it is not rejected mid-request.
const expiryLeeway = 10 * time.Second

// User is the authenticated principal.
type User struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// IsPolice reports whether the role claim grants the police capabilities.
func (u *User) IsPolice() bool {
	return u != nil && u.Role == common.RolePolice
}

// Session is a signed-in state: tokens plus the user they belong to.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Expired reports whether the access token is (about to be) past its expiry.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(expiryLeeway).Before(s.ExpiresAt)
}

// EventType names a session change.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// Event is delivered to OnAuthStateChange listeners. Session is nil for
// EventSignedOut.
type Event struct {
	Type    EventType
	Session *Session
}
