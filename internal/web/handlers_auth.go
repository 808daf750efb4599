package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/validate"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, v *Visitor) {
	s.render(w, r, v, http.StatusOK, "index", view{})
}

func (s *Server) handleHowItWorks(w http.ResponseWriter, r *http.Request, v *Visitor) {
	s.render(w, r, v, http.StatusOK, "how", view{Title: "How it works"})
}

// csrfOK checks the form token of a parsed POST and answers 403 on mismatch.
func (s *Server) csrfOK(w http.ResponseWriter, r *http.Request, v *Visitor) bool {
	if v.CheckCSRF(r.PostFormValue("csrf_token")) {
		return true
	}
	s.log.Warn(r.Context(), "form token mismatch", "visitor_id", v.ID, "path", r.URL.Path)
	s.render(w, r, v, http.StatusForbidden, "error", view{
		Title: "Form expired",
		Data:  "Please reload the page and try again.",
	})
	return false
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request, v *Visitor) {
	s.render(w, r, v, http.StatusOK, "login", view{
		Title: "Sign in",
		Form:  map[string]string{"next": localPath(r.URL.Query().Get("next"), "")},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, v *Visitor) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if !s.csrfOK(w, r, v) {
		return
	}

	in := validate.LoginInput{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	form := map[string]string{"email": in.Email, "next": localPath(r.PostFormValue("next"), "")}

	if errs := validate.Login(in); !errs.OK() {
		s.render(w, r, v, http.StatusUnprocessableEntity, "login", view{Title: "Sign in", Errors: errs, Form: form})
		return
	}

	if _, err := v.Client.SignInWithPassword(r.Context(), in.Email, in.Password); err != nil {
		s.log.Info(r.Context(), "sign-in failed", "visitor_id", v.ID, "error", err)
		v.Notify(NoticeError, "Sign in failed", messageOr(err, genericFailure))
		s.render(w, r, v, http.StatusUnauthorized, "login", view{Title: "Sign in", Form: form})
		return
	}

	v.Notify(NoticeSuccess, "Welcome back", "You are signed in.")
	redirect(w, r, localPath(form["next"], "/report"))
}

func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request, v *Visitor) {
	provider := r.PathValue("provider")

	authURL, verifier, err := v.Client.SignInWithOAuth(provider, s.callbackURL())
	if err != nil {
		v.Notify(NoticeError, "Sign in failed", messageOr(err, genericFailure))
		redirect(w, r, "/login")
		return
	}
	v.SetVerifier(verifier)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request, v *Visitor) {
	q := r.URL.Query()
	verifier := v.TakeVerifier()

	if desc := q.Get("error_description"); desc != "" || q.Get("error") != "" {
		v.Notify(NoticeError, "Sign in failed", messageOr(errors.New(desc), genericFailure))
		redirect(w, r, "/login")
		return
	}

	code := q.Get("code")
	if code == "" || verifier == "" {
		v.Notify(NoticeError, "Sign in failed", "The sign-in link is invalid or has already been used.")
		redirect(w, r, "/login")
		return
	}

	if _, err := v.Client.ExchangeCodeForSession(r.Context(), code, verifier); err != nil {
		s.log.Info(r.Context(), "code exchange failed", "visitor_id", v.ID, "error", err)
		v.Notify(NoticeError, "Sign in failed", messageOr(err, genericFailure))
		redirect(w, r, "/login")
		return
	}

	v.Notify(NoticeSuccess, "Welcome", "You are signed in.")
	redirect(w, r, "/")
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request, v *Visitor) {
	s.render(w, r, v, http.StatusOK, "register", view{Title: "Register"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, v *Visitor) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if !s.csrfOK(w, r, v) {
		return
	}

	in := validate.RegistrationInput{
		Name:            strings.TrimSpace(r.PostFormValue("name")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	form := map[string]string{"name": in.Name, "email": in.Email}

	if errs := validate.Registration(in); !errs.OK() {
		s.render(w, r, v, http.StatusUnprocessableEntity, "register", view{Title: "Register", Errors: errs, Form: form})
		return
	}

	sess, err := v.Client.SignUp(r.Context(), auth.SignUpParams{
		Email:    in.Email,
		Password: in.Password,
		FullName: in.Name,
		Role:     common.RoleCitizen,
	})
	if err != nil {
		v.Notify(NoticeError, "Registration failed", messageOr(err, genericFailure))
		s.render(w, r, v, http.StatusBadRequest, "register", view{Title: "Register", Form: form})
		return
	}

	if sess == nil {
		v.Notify(NoticeInfo, "Check your email", "Confirm your address to finish creating your account, then sign in.")
		redirect(w, r, "/login")
		return
	}

	v.Notify(NoticeSuccess, "Account created", "You are signed in.")
	redirect(w, r, "/report")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, v *Visitor) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if !s.csrfOK(w, r, v) {
		return
	}

	if err := v.Client.SignOut(r.Context()); err != nil {
		s.log.Warn(r.Context(), "remote sign-out failed", "visitor_id", v.ID, "error", err)
	}
	v.Notify(NoticeSuccess, "Signed out", "See you soon.")
	redirect(w, r, "/")
}
