package web

import "net/http"

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Pages
	mux.HandleFunc("GET /{$}", s.withVisitor(s.handleIndex))
	mux.HandleFunc("GET /how-it-works", s.withVisitor(s.handleHowItWorks))

	// Auth
	mux.HandleFunc("GET /login", s.withVisitor(s.handleLoginForm))
	mux.HandleFunc("POST /login", s.withVisitor(s.handleLogin))
	mux.HandleFunc("GET /auth/oauth/{provider}", s.withVisitor(s.handleOAuthStart))
	mux.HandleFunc("GET /auth/callback", s.withVisitor(s.handleOAuthCallback))
	mux.HandleFunc("GET /register", s.withVisitor(s.handleRegisterForm))
	mux.HandleFunc("POST /register", s.withVisitor(s.handleRegister))
	mux.HandleFunc("POST /logout", s.withVisitor(s.handleLogout))

	// Reporting
	mux.HandleFunc("GET /report", s.withVisitor(s.handleReportForm))
	mux.HandleFunc("POST /report", s.withVisitor(s.handleReport))
	mux.HandleFunc("GET /complaints", s.withVisitor(s.handleMyComplaints))
	mux.HandleFunc("GET /complaints/{id}", s.withVisitor(s.handleComplaint))

	// Police
	mux.HandleFunc("GET /police", s.withVisitor(s.handlePolice))
	mux.HandleFunc("POST /police/complaints/{id}/status", s.withVisitor(s.handleStatusUpdate))

	var h http.Handler = mux
	h = s.limiter.Middleware(h)
	h = withRecover(s.log, h)
	h = withLogging(s.log, h)
	return h
}

// visitorHandler is a handler that needs the calling browser's Visitor.
type visitorHandler func(w http.ResponseWriter, r *http.Request, v *Visitor)

// withVisitor resolves the visitor and refreshes its session if the access
// token expired, before calling h.
func (s *Server) withVisitor(h visitorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.visitors.Get(w, r)
		if err != nil {
			s.log.Error(r.Context(), "visitor unavailable", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if _, err := v.Client.GetSession(r.Context()); err != nil {
			s.log.Warn(r.Context(), "session refresh failed", "visitor_id", v.ID, "error", err)
			v.Notify(NoticeInfo, "Signed out", "Your session expired. Please sign in again.")
		}
		h(w, r, v)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// localPath accepts only same-site absolute paths as redirect targets.
func localPath(p, fallback string) string {
	if len(p) == 0 || p[0] != '/' || (len(p) > 1 && (p[1] == '/' || p[1] == '\\')) {
		return fallback
	}
	return p
}
