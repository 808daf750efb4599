package web

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/backend"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/config"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
	"github.com/dmitrijs2005/rashdrive/internal/testutil"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t      *testing.T
	srv    *Server
	ts     *httptest.Server
	client *http.Client
	j      *testutil.Journal
	auth   *testutil.Auth
	rec    *testutil.Records
	obj    *testutil.Objects
	tokens *MemoryStore
}

func newHarness(t *testing.T, tweak ...func(*config.Config)) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RateLimitRPS = 0
	for _, f := range tweak {
		f(cfg)
	}

	j := &testutil.Journal{}
	h := &harness{
		t:      t,
		j:      j,
		auth:   testutil.NewAuth(j),
		rec:    testutil.NewRecords(j),
		obj:    testutil.NewObjects(j),
		tokens: NewMemoryStore(),
	}
	h.auth.AddUser("citizen@example.com", "secret1", auth.User{ID: "u1", Name: "Asha", Role: common.RoleCitizen})
	h.auth.AddUser("officer@example.com", "secret2", auth.User{ID: "p1", Name: "Ravi", Role: common.RolePolice})

	h.srv = NewServer(Deps{
		Config: cfg,
		Log:    logging.Discard(),
		Backend: &backend.Client{
			Auth:      h.auth,
			Records:   h.rec,
			Storage:   h.obj,
			JWTSecret: []byte(testutil.JWTSecret),
		},
		Tokens: h.tokens,
	})
	h.ts = httptest.NewServer(h.srv.Handler())
	t.Cleanup(h.ts.Close)
	t.Cleanup(h.srv.visitors.closeAll)

	h.client = h.newClient()
	return h
}

// newClient returns a browser with its own cookie jar that does not follow
// redirects.
func (h *harness) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(h.t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type page struct {
	Status   int
	Location string
	Body     string
}

func (h *harness) do(req *http.Request) page {
	h.t.Helper()
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return page{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Body: string(b)}
}

func (h *harness) get(path string) page {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.ts.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(req)
}

// visitor returns the server-side visitor of the harness browser, creating it
// with a first request when needed.
func (h *harness) visitor() *Visitor {
	h.t.Helper()
	u, err := url.Parse(h.ts.URL)
	require.NoError(h.t, err)
	for attempt := 0; attempt < 2; attempt++ {
		for _, c := range h.client.Jar.Cookies(u) {
			if c.Name == common.VisitorCookieName {
				if v, ok := h.srv.visitors.lookup(c.Value); ok {
					return v
				}
			}
		}
		h.get("/health")
		h.get("/how-it-works")
	}
	h.t.Fatal("no visitor for the harness browser")
	return nil
}

// postForm submits an urlencoded form with the visitor's CSRF token. The
// caller's form is not modified.
func (h *harness) postForm(path string, in url.Values) page {
	h.t.Helper()
	form := url.Values{}
	for k, v := range in {
		form[k] = append([]string(nil), v...)
	}
	if _, ok := form["csrf_token"]; !ok {
		form.Set("csrf_token", h.visitor().CSRF())
	}
	req, err := http.NewRequest(http.MethodPost, h.ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// postMultipart submits the report form with an optional file part.
func (h *harness) postMultipart(path string, fields map[string]string, file *upload) page {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if _, ok := fields["csrf_token"]; !ok {
		require.NoError(h.t, mw.WriteField("csrf_token", h.visitor().CSRF()))
	}
	for k, v := range fields {
		require.NoError(h.t, mw.WriteField(k, v))
	}
	if file != nil {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="media"; filename="`+file.Name+`"`)
		hdr.Set("Content-Type", file.ContentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(h.t, err)
		_, err = part.Write(file.Data)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, h.ts.URL+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(req)
}

func (h *harness) login(email, password string) {
	h.t.Helper()
	p := h.postForm("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(h.t, http.StatusSeeOther, p.Status, p.Body)
	// drain the welcome notice
	h.get("/")
}

func validReport() map[string]string {
	return map[string]string{
		"vehicle_number": "KA01AB1234",
		"location":       "MG Road, Bangalore near signal",
	}
}
