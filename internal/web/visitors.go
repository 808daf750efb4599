package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
	"github.com/dmitrijs2005/rashdrive/internal/session"
	"github.com/google/uuid"
)

// Visitor is one browser. It owns an auth client and the session mirror fed
// by it, for as long as the browser keeps coming back.
type Visitor struct {
	ID     string
	Client *auth.Client
	Mirror *session.Mirror

	persist *auth.Subscription

	mu       sync.Mutex
	notices  []Notice
	verifier string
	csrf     string
	lastSeen time.Time
}

// Notify queues a notice for the next page.
func (v *Visitor) Notify(kind NoticeKind, title, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, Notice{Kind: kind, Title: title, Text: text})
}

// TakeNotices returns and clears the queue.
func (v *Visitor) TakeNotices() []Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.notices
	v.notices = nil
	return out
}

// SetVerifier keeps the PKCE verifier of a started external sign-in.
func (v *Visitor) SetVerifier(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.verifier = s
}

// TakeVerifier returns the verifier once.
func (v *Visitor) TakeVerifier() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.verifier
	v.verifier = ""
	return s
}

// CSRF returns the form token of this visitor.
func (v *Visitor) CSRF() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.csrf
}

// CheckCSRF compares a submitted form token.
func (v *Visitor) CheckCSRF(token string) bool {
	want := v.CSRF()
	return want != "" && subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

func (v *Visitor) touch(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastSeen = now
}

func (v *Visitor) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *Visitor) close() {
	if v.persist != nil {
		v.persist.Unsubscribe()
	}
	v.Mirror.Close()
}

// VisitorOptions configures Visitors.
type VisitorOptions struct {
	TTL           time.Duration
	SecureCookies bool
	JWTSecret     []byte
}

// Visitors is the registry of live visitors, keyed by cookie.
type Visitors struct {
	provider auth.Provider
	tokens   TokenStore
	opts     VisitorOptions
	log      logging.Logger
	now      func() time.Time

	mu sync.Mutex
	m  map[string]*Visitor
}

// NewVisitors returns an empty registry.
func NewVisitors(provider auth.Provider, tokens TokenStore, opts VisitorOptions, log logging.Logger) *Visitors {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Visitors{
		provider: provider,
		tokens:   tokens,
		opts:     opts,
		log:      log,
		now:      time.Now,
		m:        make(map[string]*Visitor),
	}
}

// Get returns the visitor of r, creating one (and setting the cookie) when
// the browser is new or was evicted.
func (vs *Visitors) Get(w http.ResponseWriter, r *http.Request) (*Visitor, error) {
	ctx := r.Context()

	id := ""
	if c, err := r.Cookie(common.VisitorCookieName); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}

	if id != "" {
		vs.mu.Lock()
		v, ok := vs.m[id]
		vs.mu.Unlock()
		if ok {
			v.touch(vs.now())
			return v, nil
		}
	} else {
		id = uuid.NewString()
	}

	v, err := vs.open(ctx, id)
	if err != nil {
		return nil, err
	}

	vs.mu.Lock()
	if existing, ok := vs.m[id]; ok {
		// lost a race with a parallel request of the same browser
		vs.mu.Unlock()
		v.close()
		existing.touch(vs.now())
		return existing, nil
	}
	vs.m[id] = v
	vs.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     common.VisitorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(vs.opts.TTL / time.Second),
		HttpOnly: true,
		Secure:   vs.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return v, nil
}

// open builds a visitor, restoring stored tokens when there are any.
func (vs *Visitors) open(ctx context.Context, id string) (*Visitor, error) {
	var initial *auth.Session
	if t, ok, err := vs.tokens.Load(ctx, id); err != nil {
		vs.log.Warn(ctx, "visitor tokens unavailable", "visitor_id", id, "error", err)
	} else if ok {
		s, err := auth.SessionFromTokens(t.AccessToken, t.RefreshToken, vs.opts.JWTSecret)
		if err != nil {
			vs.log.Warn(ctx, "discarding stored tokens", "visitor_id", id, "error", err)
			_ = vs.tokens.Delete(ctx, id)
		} else {
			initial = s
		}
	}

	csrf, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}

	client := auth.NewClient(vs.provider, initial)
	v := &Visitor{
		ID:       id,
		Client:   client,
		Mirror:   session.NewMirror(client),
		csrf:     csrf,
		lastSeen: vs.now(),
	}
	v.persist = client.OnAuthStateChange(func(ev auth.Event) { vs.persist(id, ev) })

	if err := v.Mirror.Start(ctx); err != nil {
		// degraded: the mirror stays loading until the next event
		vs.log.Warn(ctx, "initial session fetch failed", "visitor_id", id, "error", err)
	}
	return v, nil
}

func (vs *Visitors) persist(id string, ev auth.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if ev.Session == nil {
		err = vs.tokens.Delete(ctx, id)
	} else {
		err = vs.tokens.Save(ctx, id, Tokens{
			AccessToken:  ev.Session.AccessToken,
			RefreshToken: ev.Session.RefreshToken,
		}, vs.opts.TTL)
	}
	if err != nil {
		vs.log.Warn(ctx, "visitor tokens not persisted", "visitor_id", id, "event", ev.Type, "error", err)
	}
}

// Sweep evicts visitors idle for longer than the TTL and returns how many
// were removed. Their stored tokens are kept.
func (vs *Visitors) Sweep() int {
	cutoff := vs.now().Add(-vs.opts.TTL)

	vs.mu.Lock()
	var stale []*Visitor
	for id, v := range vs.m {
		if v.idleSince().Before(cutoff) {
			stale = append(stale, v)
			delete(vs.m, id)
		}
	}
	vs.mu.Unlock()

	for _, v := range stale {
		v.close()
	}
	return len(stale)
}

// Len returns the number of live visitors.
func (vs *Visitors) Len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.m)
}

// RunJanitor sweeps every interval until ctx is done, then closes every
// remaining visitor.
func (vs *Visitors) RunJanitor(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			vs.closeAll()
			return nil
		case <-t.C:
			if n := vs.Sweep(); n > 0 {
				vs.log.Debug(ctx, "evicted idle visitors", "count", n)
			}
		}
	}
}

func (vs *Visitors) closeAll() {
	vs.mu.Lock()
	all := vs.m
	vs.m = make(map[string]*Visitor)
	vs.mu.Unlock()
	for _, v := range all {
		v.close()
	}
}

func (vs *Visitors) lookup(id string) (*Visitor, bool) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	v, ok := vs.m[id]
	return v, ok
}
