// Package gotrue is an auth.Provider for a GoTrue-compatible auth service
// (the auth API of a Supabase project), spoken over plain HTTP.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
)

const basePath = "/auth/v1"

// Client calls the auth API at baseURL with the project's anonymous key.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	now     func() time.Time
}

var _ auth.Provider = (*Client)(nil)

// New returns a Client. A nil httpClient gets a client with a 15s timeout.
func New(baseURL, anonKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + basePath,
		anonKey: anonKey,
		http:    httpClient,
		now:     time.Now,
	}
}

// APIError is a non-2xx answer from the auth service. Error returns the
// service's own message so it can be shown to the user as-is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth service returned %d", e.Status)
	}
	return e.Message
}

type userResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata auth.UserMetadata `json:"user_metadata"`
	AppMetadata  auth.AppMetadata  `json:"app_metadata"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *userResponse `json:"user"`
}

func (u *userResponse) toUser() auth.User {
	return auth.User{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.UserMetadata.FullName,
		Role:  auth.TrustedRole(u.AppMetadata),
	}
}

func (c *Client) toSession(tr *tokenResponse) (*auth.Session, error) {
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("auth service returned no access token")
	}

	s := &auth.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if tr.User != nil {
		s.User = tr.User.toUser()
		return s, nil
	}

	// fall back to the token payload
	claims, err := auth.ParseClaims(tr.AccessToken, nil)
	if err != nil {
		return nil, err
	}
	s.User = claims.User()
	return s, nil
}

func (c *Client) do(ctx context.Context, method, path string, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}

// decodeError reads whichever message field the service used.
func decodeError(resp *http.Response) error {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(b, &e)

	msg := e.Msg
	for _, m := range []string{e.Message, e.ErrorDescription, e.Error} {
		if msg == "" {
			msg = m
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// SignUp registers an account with full_name and role user metadata.
func (c *Client) SignUp(ctx context.Context, p auth.SignUpParams) (*auth.Session, error) {
	in := map[string]any{
		"email":    p.Email,
		"password": p.Password,
		"data": map[string]string{
			"full_name": p.FullName,
			"role":      p.Role,
		},
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", "", in, &raw); err != nil {
		return nil, err
	}

	// With email confirmation enabled the body is the bare user object.
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, nil
	}
	return c.toSession(&tr)
}

func (c *Client) token(ctx context.Context, grant string, in any) (*auth.Session, error) {
	var tr tokenResponse
	if err := c.do(ctx, http.MethodPost, "/token?grant_type="+grant, "", in, &tr); err != nil {
		return nil, err
	}
	return c.toSession(&tr)
}

// SignInWithPassword uses the password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	return c.token(ctx, "password", map[string]string{"email": email, "password": password})
}

// Refresh uses the refresh_token grant.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

// ExchangeCode uses the pkce grant to finish an external-provider sign-in.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*auth.Session, error) {
	return c.token(ctx, "pkce", map[string]string{"auth_code": code, "code_verifier": verifier})
}

// AuthorizeURL builds the URL that starts an external-provider sign-in.
func (c *Client) AuthorizeURL(provider, redirectTo, codeChallenge string) (string, error) {
	if provider == "" {
		return "", fmt.Errorf("provider is required")
	}
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "s256")
	}
	return c.baseURL + "/authorize?" + q.Encode(), nil
}

// SignOut revokes the refresh tokens of the session owning accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}
