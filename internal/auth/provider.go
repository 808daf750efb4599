package auth

import "context"

// SignUpParams carries the registration form. FullName and Role end up in the
// user metadata, where the role claim is read from.
type SignUpParams struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// Provider is the auth capability of the managed backend.
//
// SignUp returns a nil session without error when the backend requires the
// address to be confirmed before the first sign-in.
type Provider interface {
	SignUp(ctx context.Context, p SignUpParams) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	AuthorizeURL(provider, redirectTo, codeChallenge string) (string, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}
