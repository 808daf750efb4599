// Package sessioncache keeps the CLI's auth tokens in a local sqlite file so
// that a restarted CLI is still signed in.
package sessioncache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/rashdrive/internal/cli/sessioncache/migrations"
	"github.com/dmitrijs2005/rashdrive/internal/dbx"
	"github.com/dmitrijs2005/rashdrive/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// Tokens is the cached token pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Cache is a key/value table in sqlite.
type Cache struct {
	db     dbx.DBTX
	closer func() error
}

// New wraps an already migrated database.
func New(db dbx.DBTX) *Cache {
	return &Cache{db: db, closer: func() error { return nil }}
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the cache file at path.
func Open(ctx context.Context, path string) (*Cache, error) {
	if path != ":memory:" {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("open session cache: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session cache: %w", err)
	}
	// one connection: ":memory:" databases are per connection
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db, closer: db.Close}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.closer()
}

// Get returns the value of key, or nil when it is absent.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session[%s]: %w", key, err)
	}
	return value, nil
}

// Set upserts key.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO session (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set session[%s]: %w", key, err)
	}
	return nil
}

// Clear removes every key.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// LoadTokens returns the cached pair. ok is false when nothing usable is
// cached.
func (c *Cache) LoadTokens(ctx context.Context) (t Tokens, ok bool, err error) {
	access, err := c.Get(ctx, keyAccessToken)
	if err != nil {
		return Tokens{}, false, err
	}
	refresh, err := c.Get(ctx, keyRefreshToken)
	if err != nil {
		return Tokens{}, false, err
	}
	if len(access) == 0 {
		return Tokens{}, false, nil
	}
	return Tokens{AccessToken: string(access), RefreshToken: string(refresh)}, true, nil
}

// SaveTokens replaces the cached pair in one transaction when the cache owns
// its database.
func (c *Cache) SaveTokens(ctx context.Context, t Tokens) error {
	write := func(ctx context.Context, tx dbx.DBTX) error {
		w := &Cache{db: tx}
		if err := w.Set(ctx, keyAccessToken, []byte(t.AccessToken)); err != nil {
			return err
		}
		return w.Set(ctx, keyRefreshToken, []byte(t.RefreshToken))
	}

	if db, ok := c.db.(dbx.TxBeginner); ok {
		return dbx.WithTx(ctx, db, nil, write)
	}
	return write(ctx, c.db)
}

// ClearTokens forgets the cached pair.
func (c *Cache) ClearTokens(ctx context.Context) error {
	return c.Clear(ctx)
}
