// Package testutil holds in-memory fakes of the backend capabilities for
// tests of the packages built on top of them.
package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/complaints"
)

// Call records one invocation on a fake, in global order across fakes that
// share a Journal.
type Call struct {
	Op   string
	Args []any
}

// Journal is an ordered, concurrency-safe call log.
type Journal struct {
	mu    sync.Mutex
	calls []Call
}

func (j *Journal) add(op string, args ...any) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, Call{Op: op, Args: args})
}

// Ops returns the operation names in call order.
func (j *Journal) Ops() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.calls))
	for _, c := range j.calls {
		out = append(out, c.Op)
	}
	return out
}

// Auth is a fake auth.Provider with a fixed account table.
type Auth struct {
	J *Journal

	mu                  sync.Mutex
	Users               map[string]Account
	RequireConfirmation bool
	Err                 error
	TTL                 time.Duration
	nextID              int
}

// Account is a registered user of the fake Auth.
type Account struct {
	Password string
	User     auth.User
}

var _ auth.Provider = (*Auth)(nil)

// NewAuth returns an empty fake with one-hour sessions.
func NewAuth(j *Journal) *Auth {
	return &Auth{J: j, Users: map[string]Account{}, TTL: time.Hour}
}

// AddUser registers an account directly.
func (a *Auth) AddUser(email, password string, u auth.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u.Email = email
	a.Users[email] = Account{Password: password, User: u}
}

// JWTSecret signs the access tokens issued by Auth.
const JWTSecret = "test-jwt-secret"

// SessionFor builds a session the fake would issue for u. The access token is
// a real HS256 JWT signed with JWTSecret.
func (a *Auth) SessionFor(u auth.User) *auth.Session {
	tok, err := auth.SignToken([]byte(JWTSecret), u, a.TTL)
	if err != nil {
		tok = "access-" + u.ID
	}
	return &auth.Session{
		AccessToken:  tok,
		RefreshToken: "refresh-" + u.ID,
		ExpiresAt:    time.Now().Add(a.TTL),
		User:         u,
	}
}

func (a *Auth) SignUp(_ context.Context, p auth.SignUpParams) (*auth.Session, error) {
	a.J.add("auth.signup", p.Email)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	if _, ok := a.Users[p.Email]; ok {
		return nil, fmt.Errorf("User already registered")
	}
	a.nextID++
	u := auth.User{ID: fmt.Sprintf("u%d", a.nextID), Email: p.Email, Name: p.FullName, Role: p.Role}
	a.Users[p.Email] = Account{Password: p.Password, User: u}
	if a.RequireConfirmation {
		return nil, nil
	}
	return a.SessionFor(u), nil
}

func (a *Auth) SignInWithPassword(_ context.Context, email, password string) (*auth.Session, error) {
	a.J.add("auth.signin", email)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	acc, ok := a.Users[email]
	if !ok || acc.Password != password {
		return nil, fmt.Errorf("Invalid login credentials")
	}
	return a.SessionFor(acc.User), nil
}

func (a *Auth) AuthorizeURL(provider, redirectTo, codeChallenge string) (string, error) {
	a.J.add("auth.authorize", provider)
	if a.Err != nil {
		return "", a.Err
	}
	return "https://auth.example/authorize?provider=" + provider + "&code_challenge=" + codeChallenge, nil
}

func (a *Auth) ExchangeCode(_ context.Context, code, verifier string) (*auth.Session, error) {
	a.J.add("auth.exchange", code)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	for _, acc := range a.Users {
		if acc.User.ID == code {
			return a.SessionFor(acc.User), nil
		}
	}
	return nil, fmt.Errorf("invalid flow state")
}

func (a *Auth) Refresh(_ context.Context, refreshToken string) (*auth.Session, error) {
	a.J.add("auth.refresh")
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	for _, acc := range a.Users {
		if "refresh-"+acc.User.ID == refreshToken {
			return a.SessionFor(acc.User), nil
		}
	}
	return nil, fmt.Errorf("Invalid Refresh Token")
}

func (a *Auth) SignOut(context.Context, string) error {
	a.J.add("auth.signout")
	return a.Err
}

// Records is a fake records.Store kept in memory.
type Records struct {
	J *Journal

	mu        sync.Mutex
	Rows      map[string]*complaints.Complaint
	Inserts   []complaints.Insert
	InsertErr error
	UpdateErr error
	ListErr   error
	seq       int
	clock     time.Time
}

// NewRecords returns an empty store.
func NewRecords(j *Journal) *Records {
	return &Records{J: j, Rows: map[string]*complaints.Complaint{}, clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Put stores c as-is.
func (r *Records) Put(c *complaints.Complaint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.Rows[c.ID] = &cp
}

func (r *Records) Insert(_ context.Context, in complaints.Insert) (*complaints.Complaint, error) {
	r.J.add("records.insert", in)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Inserts = append(r.Inserts, in)
	if r.InsertErr != nil {
		return nil, r.InsertErr
	}
	r.seq++
	r.clock = r.clock.Add(time.Minute)
	c := &complaints.Complaint{
		ID:            fmt.Sprintf("c%d", r.seq),
		CreatedAt:     r.clock,
		VehicleNumber: in.VehicleNumber,
		Location:      in.Location,
		IncidentDate:  in.IncidentDate,
		Description:   in.Description,
		MediaURL:      in.MediaURL,
		Status:        in.Status,
		UserID:        in.UserID,
	}
	r.Rows[c.ID] = c
	cp := *c
	return &cp, nil
}

func (r *Records) UpdateStatus(_ context.Context, id string, status complaints.Status, at time.Time) error {
	r.J.add("records.update", id, status)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	c, ok := r.Rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	if !complaints.CanTransition(c.Status, status) {
		return common.ErrInvalidTransition
	}
	c.Status = status
	c.UpdatedAt = &at
	return nil
}

func (r *Records) ListByUser(_ context.Context, userID string) ([]*complaints.Complaint, error) {
	r.J.add("records.list_user", userID)
	return r.filter(func(c *complaints.Complaint) bool { return c.UserID == userID })
}

func (r *Records) ListByStatus(_ context.Context, status complaints.Status) ([]*complaints.Complaint, error) {
	r.J.add("records.list_status", status)
	return r.filter(func(c *complaints.Complaint) bool { return c.Status == status })
}

func (r *Records) filter(keep func(*complaints.Complaint) bool) ([]*complaints.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var out []*complaints.Complaint
	for _, c := range r.Rows {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Records) Get(_ context.Context, id string) (*complaints.Complaint, error) {
	r.J.add("records.get", id)
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.Rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

// InsertCount returns how many inserts were attempted.
func (r *Records) InsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Inserts)
}

// Objects is a fake objects.Store kept in memory.
type Objects struct {
	J *Journal

	mu        sync.Mutex
	Data      map[string][]byte
	Types     map[string]string
	UploadErr error
	RemoveErr error
	// Hold, when set, blocks Upload until it is closed.
	Hold chan struct{}
}

// NewObjects returns an empty bucket.
func NewObjects(j *Journal) *Objects {
	return &Objects{J: j, Data: map[string][]byte{}, Types: map[string]string{}}
}

func (o *Objects) Upload(ctx context.Context, path string, body io.ReadSeeker, _ int64, contentType string) (string, error) {
	o.J.add("objects.upload", path)
	if o.Hold != nil {
		select {
		case <-o.Hold:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.UploadErr != nil {
		return "", o.UploadErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	o.Data[path] = b
	o.Types[path] = contentType
	return path, nil
}

func (o *Objects) Remove(_ context.Context, path string) error {
	o.J.add("objects.remove", path)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.RemoveErr != nil {
		return o.RemoveErr
	}
	delete(o.Data, path)
	return nil
}

func (o *Objects) URL(_ context.Context, path string) (string, error) {
	o.J.add("objects.url", path)
	return "https://storage.example/" + path + "?sig=test", nil
}

// Has reports whether path is stored.
func (o *Objects) Has(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.Data[path]
	return ok
}

// Count returns the number of stored objects.
func (o *Objects) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Data)
}
