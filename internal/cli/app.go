// Package cli is the interactive terminal client.
//
// It owns one auth client and its session mirror for the lifetime of the
// process, caches the token pair in a local sqlite file, and runs a REPL over
// the same report and review services as the web front-end.
//
// Commands: register, login, logout, whoami, report, list, show <id>,
// pending, resolve <id>, help, exit.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/backend"
	"github.com/dmitrijs2005/rashdrive/internal/cli/sessioncache"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
	"github.com/dmitrijs2005/rashdrive/internal/report"
	"github.com/dmitrijs2005/rashdrive/internal/review"
	"github.com/dmitrijs2005/rashdrive/internal/session"
)

// TokenCache persists the token pair between runs.
type TokenCache interface {
	LoadTokens(ctx context.Context) (sessioncache.Tokens, bool, error)
	SaveTokens(ctx context.Context, t sessioncache.Tokens) error
	ClearTokens(ctx context.Context) error
}

// Deps are the collaborators of an App.
type Deps struct {
	Log     logging.Logger
	Backend *backend.Client
	Cache   TokenCache
	In      io.Reader
	Out     io.Writer
}

type App struct {
	log       logging.Logger
	client    *auth.Client
	mirror    *session.Mirror
	submitter *report.Submitter
	review    *review.Service
	cache     TokenCache
	persist   *auth.Subscription

	reader *bufio.Reader
	out    io.Writer
}

// NewApp restores a cached session, if any, and starts the session mirror.
func NewApp(ctx context.Context, d Deps) (*App, error) {
	var initial *auth.Session
	if t, ok, err := d.Cache.LoadTokens(ctx); err != nil {
		d.Log.Warn(ctx, "session cache unavailable", "error", err)
	} else if ok {
		s, err := auth.SessionFromTokens(t.AccessToken, t.RefreshToken, d.Backend.JWTSecret)
		if err != nil {
			d.Log.Warn(ctx, "discarding cached session", "error", err)
			_ = d.Cache.ClearTokens(ctx)
		} else {
			initial = s
		}
	}

	client := auth.NewClient(d.Backend.Auth, initial)
	a := &App{
		log:       d.Log,
		client:    client,
		mirror:    session.NewMirror(client),
		submitter: report.NewSubmitter(d.Backend.Records, d.Backend.Storage, d.Log),
		review:    review.NewService(d.Backend.Records, d.Backend.Storage, d.Log),
		cache:     d.Cache,
		reader:    bufio.NewReader(d.In),
		out:       d.Out,
	}
	a.persist = client.OnAuthStateChange(a.onAuthEvent)

	if err := a.mirror.Start(ctx); err != nil {
		d.Log.Warn(ctx, "initial session fetch failed", "error", err)
	}
	return a, nil
}

func (a *App) onAuthEvent(ev auth.Event) {
	ctx := context.Background()
	var err error
	if ev.Session == nil {
		err = a.cache.ClearTokens(ctx)
	} else {
		err = a.cache.SaveTokens(ctx, sessioncache.Tokens{
			AccessToken:  ev.Session.AccessToken,
			RefreshToken: ev.Session.RefreshToken,
		})
	}
	if err != nil {
		a.log.Warn(ctx, "session not cached", "event", ev.Type, "error", err)
	}
}

// Close stops following the auth client.
func (a *App) Close() {
	a.persist.Unsubscribe()
	a.mirror.Close()
}

// Run greets the user and blocks in the REPL until exit or end of input.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.println("Rash Driving Detector CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.mirror.Snapshot().Authenticated()
}

func (a *App) status() string {
	snap := a.mirror.Snapshot()
	switch {
	case snap.Loading:
		return "(offline)"
	case !snap.Authenticated():
		return ""
	case snap.IsPolice:
		return fmt.Sprintf("(%s police)", snap.User.Email)
	default:
		return fmt.Sprintf("(%s)", snap.User.Email)
	}
}

// refresh renews an expired access token before a remote call.
func (a *App) refresh(ctx context.Context) {
	if _, err := a.client.GetSession(ctx); err != nil {
		a.println("Your session expired. Please sign in again.")
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
