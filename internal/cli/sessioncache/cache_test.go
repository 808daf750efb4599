package sessioncache

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetAndGet(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("old")))
	require.NoError(t, c.Set(ctx, "k", []byte("new")))

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)

	v, err = c.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTokens(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	_, ok, err := c.LoadTokens(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := Tokens{AccessToken: "a.b.c", RefreshToken: "r1"}
	require.NoError(t, c.SaveTokens(ctx, want))

	got, ok, err := c.LoadTokens(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, c.ClearTokens(ctx))
	_, ok, err = c.LoadTokens(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokensSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	c, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, c.SaveTokens(ctx, Tokens{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, c.Close())

	c, err = Open(ctx, path)
	require.NoError(t, err)
	defer c.Close()

	got, ok, err := c.LoadTokens(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r", got.RefreshToken)
}

func TestNewOverTransaction(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, RunMigrations(ctx, db))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	c := New(tx)
	require.NoError(t, c.SaveTokens(ctx, Tokens{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, tx.Rollback())

	_, ok, err := New(db).LoadTokens(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestErrorsAreWrapped(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.Close())

	_, err := c.Get(ctx, "k")
	assert.ErrorContains(t, err, "failed to get session[k]")
	assert.ErrorContains(t, c.Set(ctx, "k", []byte("v")), "failed to set session[k]")
	assert.ErrorContains(t, c.Clear(ctx), "failed to clear session")
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.db")
	c, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.FileExists(t, path)
}
