package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/session"
	"github.com/dmitrijs2005/rashdrive/internal/validate"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{
	"index", "how", "login", "register", "report", "complaints", "complaint", "police", "error",
}

var funcs = template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format("02 Jan 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("02 Jan 2006 15:04")
	},
}

// pages holds one template set per page, each combined with the layout.
var pages = func() map[string]*template.Template {
	m := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		m[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return m
}()

// view is what every template receives.
type view struct {
	Title   string
	Snap    session.Snapshot
	Notices []Notice
	CSRF    string
	Errors  validate.Errors
	Form    map[string]string
	Data    any
}

// render executes the page into a buffer first so that a template failure
// does not leave a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, v *Visitor, status int, name string, data view) {
	data.Snap = v.Mirror.Snapshot()
	data.Notices = v.TakeNotices()
	data.CSRF = v.CSRF()
	if data.Errors == nil {
		data.Errors = validate.Errors{}
	}
	if data.Form == nil {
		data.Form = map[string]string{}
	}

	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error(r.Context(), "render failed", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
