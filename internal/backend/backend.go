// Package backend builds the handle to the managed backend once at startup.
// The three capabilities are threaded through constructors from there.
package backend

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/backend/gotrue"
	"github.com/dmitrijs2005/rashdrive/internal/backend/objects"
	"github.com/dmitrijs2005/rashdrive/internal/backend/records"
	"github.com/dmitrijs2005/rashdrive/internal/config"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
)

// Client groups the auth, record and object-storage capabilities.
type Client struct {
	Auth    auth.Provider
	Records records.Store
	Storage objects.Store

	// JWTSecret verifies access tokens restored from storage. Empty means
	// tokens are decoded without a signature check.
	JWTSecret []byte

	db *sql.DB
}

// seams for tests
var (
	openDB         = records.Open
	newObjectStore = func(ctx context.Context, opts objects.Options) (objects.Store, error) {
		return objects.NewS3Store(ctx, opts)
	}
)

// NotConfigured returns a Client whose every call fails with
// common.ErrNotConfigured.
func NotConfigured() *Client {
	return &Client{Auth: stubAuth{}, Records: stubRecords{}, Storage: stubObjects{}}
}

// New builds the Client from cfg. Missing backend URL or anonymous key gives
// a fully stubbed client; a missing DSN or storage keys stub only that
// capability. Every degraded capability is logged.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) *Client {
	if !cfg.BackendConfigured() {
		log.Error(ctx, "backend not configured: set SUPABASE_URL and SUPABASE_ANON_KEY",
			"has_url", cfg.BackendURL != "", "has_anon_key", cfg.BackendAnonKey != "")
		return NotConfigured()
	}

	c := NotConfigured()
	c.Auth = gotrue.New(cfg.BackendURL, cfg.BackendAnonKey, nil)
	c.JWTSecret = []byte(cfg.BackendJWTSecret)

	if cfg.DatabaseDSN == "" {
		log.Warn(ctx, "record store not configured: set DATABASE_URL")
	} else if db, err := openDB(ctx, cfg.DatabaseDSN); err != nil {
		log.Error(ctx, "record store unavailable", "error", err)
	} else {
		c.db = db
		c.Records = records.NewPostgresStore(db)
	}

	if cfg.StorageAccessKey == "" || cfg.StorageSecretKey == "" {
		log.Warn(ctx, "object storage not configured: set RD_STORAGE_ACCESS_KEY and RD_STORAGE_SECRET_KEY")
	} else {
		st, err := newObjectStore(ctx, objects.Options{
			Bucket:    cfg.StorageBucket,
			Region:    cfg.StorageRegion,
			Endpoint:  storageEndpoint(cfg),
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
		})
		if err != nil {
			log.Error(ctx, "object storage unavailable", "error", err)
		} else {
			c.Storage = st
		}
	}

	return c
}

// storageEndpoint defaults to the project's S3 gateway.
func storageEndpoint(cfg *config.Config) string {
	if cfg.StorageEndpoint != "" {
		return cfg.StorageEndpoint
	}
	return strings.TrimRight(cfg.BackendURL, "/") + "/storage/v1/s3"
}

// Close releases the database handle, if any.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
