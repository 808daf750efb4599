package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/backend"
	"github.com/dmitrijs2005/rashdrive/internal/cli/sessioncache"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/complaints"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
	"github.com/dmitrijs2005/rashdrive/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	app   *App
	out   *bytes.Buffer
	j     *testutil.Journal
	auth  *testutil.Auth
	rec   *testutil.Records
	obj   *testutil.Objects
	cache *sessioncache.Cache
}

// stubPasswords makes getPassword return pws in order.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })
	getPassword = func(string, io.Writer) ([]byte, error) {
		if len(pws) == 0 {
			return nil, errors.New("no more passwords")
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
}

func newFixture(t *testing.T, input string, seed ...func(*fixture)) *fixture {
	t.Helper()
	j := &testutil.Journal{}
	f := &fixture{
		out:  &bytes.Buffer{},
		j:    j,
		auth: testutil.NewAuth(j),
		rec:  testutil.NewRecords(j),
		obj:  testutil.NewObjects(j),
	}
	f.auth.AddUser("citizen@example.com", "secret1", auth.User{ID: "u1", Name: "Asha", Role: common.RoleCitizen})
	f.auth.AddUser("officer@example.com", "secret2", auth.User{ID: "p1", Name: "Ravi", Role: common.RolePolice})

	cache, err := sessioncache.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	f.cache = cache

	for _, s := range seed {
		s(f)
	}

	f.app, err = NewApp(context.Background(), Deps{
		Log: logging.Discard(),
		Backend: &backend.Client{
			Auth:      f.auth,
			Records:   f.rec,
			Storage:   f.obj,
			JWTSecret: []byte(testutil.JWTSecret),
		},
		Cache: cache,
		In:    strings.NewReader(input),
		Out:   f.out,
	})
	require.NoError(t, err)
	t.Cleanup(f.app.Close)
	return f
}

func (f *fixture) signIn(t *testing.T, email, password string) {
	t.Helper()
	_, err := f.app.client.SignInWithPassword(context.Background(), email, password)
	require.NoError(t, err)
}

func TestLogin_CachesSession(t *testing.T) {
	stubPasswords(t, "secret1")
	f := newFixture(t, "citizen@example.com\n")
	ctx := context.Background()

	require.NoError(t, f.app.Login(ctx))
	assert.Contains(t, f.out.String(), "Signed in as citizen@example.com")
	assert.True(t, f.app.isLoggedIn())

	tok, ok, err := f.cache.LoadTokens(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "refresh-u1", tok.RefreshToken)

	f.out.Reset()
	require.NoError(t, f.app.WhoAmI(ctx))
	assert.Contains(t, f.out.String(), "Asha <citizen@example.com> role=citizen id=u1")
}

func TestLogin_InvalidInputSkipsRemote(t *testing.T) {
	stubPasswords(t, "")
	f := newFixture(t, "not-an-email\n")

	err := f.app.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, f.out.String(), "email:")
	assert.Empty(t, f.j.Ops())
}

func TestLogin_Rejected(t *testing.T) {
	stubPasswords(t, "wrong-password")
	f := newFixture(t, "citizen@example.com\n")

	require.Error(t, f.app.Login(context.Background()))
	assert.Contains(t, f.out.String(), "Login failed: Invalid login credentials")
	assert.False(t, f.app.isLoggedIn())
}

func TestRegister(t *testing.T) {
	t.Run("mismatch", func(t *testing.T) {
		stubPasswords(t, "hunter22", "hunter23")
		f := newFixture(t, "Meera\nmeera@example.com\n")
		require.Error(t, f.app.Register(context.Background()))
		assert.Contains(t, f.out.String(), "Passwords don't match")
		assert.Empty(t, f.j.Ops())
	})

	t.Run("confirmation required", func(t *testing.T) {
		stubPasswords(t, "hunter22", "hunter22")
		f := newFixture(t, "Meera\nmeera@example.com\n", func(f *fixture) { f.auth.RequireConfirmation = true })
		require.NoError(t, f.app.Register(context.Background()))
		assert.Contains(t, f.out.String(), "Check your email")
		assert.False(t, f.app.isLoggedIn())
	})

	t.Run("signed in", func(t *testing.T) {
		stubPasswords(t, "hunter22", "hunter22")
		f := newFixture(t, "Meera\nmeera@example.com\n")
		require.NoError(t, f.app.Register(context.Background()))
		assert.Contains(t, f.out.String(), "Welcome, Meera!")
		snap := f.app.mirror.Snapshot()
		require.True(t, snap.Authenticated())
		assert.Equal(t, common.RoleCitizen, snap.User.Role)
	})
}

func TestLogout_ClearsCache(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.signIn(t, "citizen@example.com", "secret1")

	require.NoError(t, f.app.Logout(ctx))
	assert.False(t, f.app.isLoggedIn())
	_, ok, err := f.cache.LoadTokens(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewApp_RestoresCachedSession(t *testing.T) {
	f := newFixture(t, "", func(f *fixture) {
		s := f.auth.SessionFor(auth.User{ID: "p1", Email: "officer@example.com", Name: "Ravi", Role: common.RolePolice})
		require.NoError(t, f.cache.SaveTokens(context.Background(), sessioncache.Tokens{
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
		}))
	})

	snap := f.app.mirror.Snapshot()
	require.True(t, snap.Authenticated())
	assert.True(t, snap.IsPolice)
	assert.Equal(t, "(officer@example.com police)", f.app.status())
	assert.Empty(t, f.j.Ops())
}

func TestNewApp_DiscardsUnreadableCache(t *testing.T) {
	f := newFixture(t, "", func(f *fixture) {
		require.NoError(t, f.cache.SaveTokens(context.Background(), sessioncache.Tokens{AccessToken: "garbage", RefreshToken: "r"}))
	})

	assert.False(t, f.app.isLoggedIn())
	_, ok, err := f.cache.LoadTokens(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReport_RequiresLogin(t *testing.T) {
	f := newFixture(t, "KA01AB1234\n")

	err := f.app.Report(context.Background())
	assert.ErrorIs(t, err, common.ErrAuthRequired)
	assert.Contains(t, f.out.String(), "Authentication required")
	assert.Empty(t, f.j.Ops())
}

func TestReport_InvalidPlate(t *testing.T) {
	f := newFixture(t, "KA1AB1234\nMG Road, Bangalore near signal\n\n\n\n")
	f.signIn(t, "citizen@example.com", "secret1")

	require.Error(t, f.app.Report(context.Background()))
	assert.Contains(t, f.out.String(), "Invalid vehicle number format")
	assert.Zero(t, f.rec.InsertCount())
}

func TestReport_WithMedia(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("mp4-bytes"), 0o600))

	input := strings.Join([]string{
		"ka01ab1234",
		"MG Road, Bangalore near signal",
		"2025-03-14",
		"Jumped the red light",
		"",
		clip,
	}, "\n") + "\n"
	f := newFixture(t, input)
	f.signIn(t, "citizen@example.com", "secret1")

	require.NoError(t, f.app.Report(context.Background()))
	assert.Contains(t, f.out.String(), "Report submitted (id c1)")

	require.Len(t, f.rec.Inserts, 1)
	in := f.rec.Inserts[0]
	assert.Equal(t, "KA01AB1234", in.VehicleNumber)
	assert.Equal(t, "Jumped the red light", in.Description)
	assert.Equal(t, "u1", in.UserID)
	assert.True(t, strings.HasPrefix(in.MediaURL, "u1/"))
	assert.True(t, strings.HasSuffix(in.MediaURL, ".mp4"))
	assert.Equal(t, "video/mp4", f.obj.Types[in.MediaURL])
}

func TestReport_UnsupportedFile(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte("text"), 0o600))

	f := newFixture(t, "KA01AB1234\nMG Road, Bangalore near signal\n\n\n"+doc+"\n")
	f.signIn(t, "citizen@example.com", "secret1")

	require.Error(t, f.app.Report(context.Background()))
	assert.Contains(t, f.out.String(), "Attachment rejected")
	assert.Zero(t, f.obj.Count())
	assert.Zero(t, f.rec.InsertCount())
}

func seedComplaints(f *fixture) {
	now := time.Now()
	f.rec.Put(&complaints.Complaint{
		ID: "c-own", UserID: "u1", VehicleNumber: "KA01AB1234", Location: "MG Road, Bangalore",
		MediaURL: "u1/clip.mp4", Status: complaints.StatusPending, CreatedAt: now.Add(-time.Hour),
	})
	f.rec.Put(&complaints.Complaint{
		ID: "c-other", UserID: "u9", VehicleNumber: "MH12CD5678", Location: "Old Airport Road",
		Status: complaints.StatusPending, CreatedAt: now,
	})
}

func TestListAndShow(t *testing.T) {
	f := newFixture(t, "", seedComplaints)
	ctx := context.Background()
	f.signIn(t, "citizen@example.com", "secret1")

	require.NoError(t, f.app.List(ctx))
	out := f.out.String()
	assert.Contains(t, out, "KA01AB1234")
	assert.NotContains(t, out, "MH12CD5678")
	assert.Contains(t, out, "1 hour ago")

	f.out.Reset()
	require.NoError(t, f.app.Show(ctx, "c-own"))
	assert.Contains(t, f.out.String(), "https://storage.example/u1/clip.mp4?sig=test")

	f.out.Reset()
	assert.ErrorIs(t, f.app.Show(ctx, "c-other"), common.ErrorNotFound)
	assert.Contains(t, f.out.String(), "Complaint not found.")
}

func TestPending_DeniedForCitizen(t *testing.T) {
	f := newFixture(t, "", seedComplaints)
	f.signIn(t, "citizen@example.com", "secret1")

	err := f.app.Pending(context.Background())
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Equal(t, 1, strings.Count(f.out.String(), "Access Denied"))
	assert.NotContains(t, f.j.Ops(), "records.list_status")
}

func TestPendingAndResolve_AsPolice(t *testing.T) {
	f := newFixture(t, "", seedComplaints)
	ctx := context.Background()
	f.signIn(t, "officer@example.com", "secret2")

	require.NoError(t, f.app.Pending(ctx))
	assert.Contains(t, f.out.String(), "KA01AB1234")
	assert.Contains(t, f.out.String(), "MH12CD5678")

	f.out.Reset()
	require.NoError(t, f.app.Resolve(ctx, "c-own"))
	assert.Contains(t, f.out.String(), "Complaint status updated successfully")
	c, err := f.rec.Get(ctx, "c-own")
	require.NoError(t, err)
	assert.Equal(t, complaints.StatusResolved, c.Status)

	f.out.Reset()
	f.rec.UpdateErr = errors.New("connection reset")
	require.Error(t, f.app.Resolve(ctx, "c-other"))
	assert.Contains(t, f.out.String(), "Failed to update complaint status")
}

func TestResolve_DeniedForCitizen(t *testing.T) {
	f := newFixture(t, "", seedComplaints)
	f.signIn(t, "citizen@example.com", "secret1")

	require.Error(t, f.app.Resolve(context.Background(), "c-own"))
	assert.Contains(t, f.out.String(), "Access Denied")
	assert.NotContains(t, f.j.Ops(), "records.update")
}

func TestTypeForExt(t *testing.T) {
	assert.Equal(t, "image/png", typeForExt(".PNG"))
	assert.Equal(t, "image/jpeg", typeForExt(".jpeg"))
	assert.Equal(t, "video/webm", typeForExt(".webm"))
	assert.Equal(t, "video/mp4", typeForExt(".mp4"))
}
