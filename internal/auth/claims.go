package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid access token")

// UserMetadata is the profile data set at sign-up. Users can rewrite it
// themselves, so its role is never used for authorization.
type UserMetadata struct {
	FullName string `json:"full_name"`
	Role     string `json:"role,omitempty"`
}

// AppMetadata is written only by the auth service and its administrators.
type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// Claims is the subset of the access-token payload the application reads.
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	AppMetadata  AppMetadata  `json:"app_metadata"`
}

// TrustedRole returns the app_metadata role, defaulting to citizen.
func TrustedRole(app AppMetadata) string {
	if app.Role == "" {
		return common.RoleCitizen
	}
	return app.Role
}

// ParseClaims decodes an access token. With a secret the HS256 signature and
// expiry are verified; without one the payload is decoded as-is, which is
// only appropriate for tokens received directly from the auth service.
func ParseClaims(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	if len(secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return claims, nil
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// User builds the identity carried by the claims.
func (c *Claims) User() User {
	return User{
		ID:    c.Subject,
		Email: c.Email,
		Name:  c.UserMetadata.FullName,
		Role:  TrustedRole(c.AppMetadata),
	}
}

// SessionFromTokens rebuilds a Session from stored tokens. It is used when
// only the token pair was persisted.
func SessionFromTokens(accessToken, refreshToken string, secret []byte) (*Session, error) {
	claims, err := ParseClaims(accessToken, secret)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	s := &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         claims.User(),
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// SignToken mints an HS256 access token for u. Real tokens come from the auth
// service; this is used by tests and local tooling.
func SignToken(secret []byte, u User, ttl time.Duration) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email:        u.Email,
		UserMetadata: UserMetadata{FullName: u.Name},
		AppMetadata:  AppMetadata{Role: u.Role},
	})
	return tok.SignedString(secret)
}
