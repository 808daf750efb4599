// Package web is the server-rendered front-end. Each browser is a Visitor
// with its own auth client and session mirror; handlers read the mirror's
// snapshot and call the report and review services.
package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/backend"
	"github.com/dmitrijs2005/rashdrive/internal/config"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
	"github.com/dmitrijs2005/rashdrive/internal/report"
	"github.com/dmitrijs2005/rashdrive/internal/review"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators of a Server, built once in main.
type Deps struct {
	Config  *config.Config
	Log     logging.Logger
	Backend *backend.Client
	Tokens  TokenStore
}

// Server serves the web front-end.
type Server struct {
	cfg       *config.Config
	log       logging.Logger
	visitors  *Visitors
	limiter   *RateLimiter
	submitter *report.Submitter
	review    *review.Service
	handler   http.Handler

	janitorEvery time.Duration
}

// NewServer wires the handlers.
func NewServer(d Deps) *Server {
	tokens := d.Tokens
	if tokens == nil {
		tokens = NewMemoryStore()
	}

	s := &Server{
		cfg: d.Config,
		log: d.Log,
		visitors: NewVisitors(d.Backend.Auth, tokens, VisitorOptions{
			TTL:           d.Config.VisitorTTL,
			SecureCookies: d.Config.SecureCookies,
			JWTSecret:     d.Backend.JWTSecret,
		}, d.Log),
		limiter:      NewRateLimiter(d.Config.RateLimitRPS, d.Config.RateLimitBurst),
		submitter:    report.NewSubmitter(d.Backend.Records, d.Backend.Storage, d.Log),
		review:       review.NewService(d.Backend.Records, d.Backend.Storage, d.Log),
		janitorEvery: time.Minute,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully. The visitor janitor and rate-limit cleanup run alongside.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info(gctx, "listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return s.visitors.RunJanitor(gctx, s.janitorEvery) })
	g.Go(func() error { return s.limiter.Run(gctx) })

	return g.Wait()
}

// callbackURL is where the auth service sends the browser after an
// external-provider sign-in.
func (s *Server) callbackURL() string {
	return strings.TrimRight(s.cfg.PublicURL, "/") + "/auth/callback"
}
