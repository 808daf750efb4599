package backend

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/backend/gotrue"
	"github.com/dmitrijs2005/rashdrive/internal/backend/objects"
	"github.com/dmitrijs2005/rashdrive/internal/backend/records"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/complaints"
	"github.com/dmitrijs2005/rashdrive/internal/config"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubSeams(t *testing.T, open func(context.Context, string) (*sql.DB, error), store func(context.Context, objects.Options) (objects.Store, error)) {
	t.Helper()
	origOpen, origStore := openDB, newObjectStore
	openDB, newObjectStore = open, store
	t.Cleanup(func() { openDB, newObjectStore = origOpen, origStore })
}

func TestNew_NotConfigured(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()

	c := New(context.Background(), cfg, logging.New("debug", "text", &buf))
	assert.Contains(t, buf.String(), "backend not configured")

	ctx := context.Background()
	_, err := c.Auth.SignInWithPassword(ctx, "a@b.co", "x")
	assert.ErrorIs(t, err, common.ErrNotConfigured)
	_, err = c.Auth.SignUp(ctx, authParams())
	assert.ErrorIs(t, err, common.ErrNotConfigured)
	_, err = c.Auth.AuthorizeURL("google", "", "")
	assert.ErrorIs(t, err, common.ErrNotConfigured)
	_, err = c.Records.Insert(ctx, complaints.Insert{})
	assert.ErrorIs(t, err, common.ErrNotConfigured)
	_, err = c.Records.ListByUser(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrNotConfigured)
	_, err = c.Storage.Upload(ctx, "p", strings.NewReader(""), 0, "image/png")
	assert.ErrorIs(t, err, common.ErrNotConfigured)
	assert.ErrorIs(t, c.Storage.Remove(ctx, "p"), common.ErrNotConfigured)
	assert.NoError(t, c.Close())
}

func TestNew_AuthOnly(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BackendURL = "https://abc.supabase.co"
	cfg.BackendAnonKey = "anon"

	stubSeams(t,
		func(context.Context, string) (*sql.DB, error) { t.Fatal("db must not be opened"); return nil, nil },
		func(context.Context, objects.Options) (objects.Store, error) {
			t.Fatal("storage must not be built")
			return nil, nil
		})

	c := New(context.Background(), cfg, logging.New("debug", "text", &buf))
	assert.IsType(t, &gotrue.Client{}, c.Auth)
	assert.IsType(t, stubRecords{}, c.Records)
	assert.IsType(t, stubObjects{}, c.Storage)
	assert.Contains(t, buf.String(), "record store not configured")
	assert.Contains(t, buf.String(), "object storage not configured")
}

func TestNew_FullyConfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BackendURL = "https://abc.supabase.co/"
	cfg.BackendAnonKey = "anon"
	cfg.BackendJWTSecret = "jwt"
	cfg.DatabaseDSN = "postgres://db"
	cfg.StorageAccessKey = "ak"
	cfg.StorageSecretKey = "sk"

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	var gotOpts objects.Options
	stubSeams(t,
		func(_ context.Context, dsn string) (*sql.DB, error) {
			assert.Equal(t, "postgres://db", dsn)
			return db, nil
		},
		func(_ context.Context, opts objects.Options) (objects.Store, error) {
			gotOpts = opts
			return stubObjects{}, nil
		})

	c := New(context.Background(), cfg, logging.Discard())
	assert.IsType(t, &records.PostgresStore{}, c.Records)
	assert.Equal(t, []byte("jwt"), c.JWTSecret)
	assert.Equal(t, "https://abc.supabase.co/storage/v1/s3", gotOpts.Endpoint)
	assert.Equal(t, "complaint-media", gotOpts.Bucket)

	require.NoError(t, c.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_CapabilityFailuresDegrade(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		BackendURL:       "https://abc.supabase.co",
		BackendAnonKey:   "anon",
		DatabaseDSN:      "postgres://db",
		StorageEndpoint:  "http://minio:9000",
		StorageAccessKey: "ak",
		StorageSecretKey: "sk",
	}

	stubSeams(t,
		func(context.Context, string) (*sql.DB, error) { return nil, errors.New("refused") },
		func(_ context.Context, opts objects.Options) (objects.Store, error) {
			assert.Equal(t, "http://minio:9000", opts.Endpoint)
			return nil, errors.New("bad region")
		})

	c := New(context.Background(), cfg, logging.New("debug", "text", &buf))
	assert.IsType(t, stubRecords{}, c.Records)
	assert.IsType(t, stubObjects{}, c.Storage)
	assert.Contains(t, buf.String(), "record store unavailable")
	assert.Contains(t, buf.String(), "object storage unavailable")
}

func authParams() auth.SignUpParams {
	return auth.SignUpParams{Email: "a@b.co", Password: "secret", FullName: "Asha", Role: common.RoleCitizen}
}
