package backend

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/complaints"
)

// The stubs fail every call with common.ErrNotConfigured so that a missing
// setting shows up as a notice instead of a crash.

type stubAuth struct{}

func (stubAuth) SignUp(context.Context, auth.SignUpParams) (*auth.Session, error) {
	return nil, common.ErrNotConfigured
}

func (stubAuth) SignInWithPassword(context.Context, string, string) (*auth.Session, error) {
	return nil, common.ErrNotConfigured
}

func (stubAuth) AuthorizeURL(string, string, string) (string, error) {
	return "", common.ErrNotConfigured
}

func (stubAuth) ExchangeCode(context.Context, string, string) (*auth.Session, error) {
	return nil, common.ErrNotConfigured
}

func (stubAuth) Refresh(context.Context, string) (*auth.Session, error) {
	return nil, common.ErrNotConfigured
}

func (stubAuth) SignOut(context.Context, string) error {
	return common.ErrNotConfigured
}

type stubRecords struct{}

func (stubRecords) Insert(context.Context, complaints.Insert) (*complaints.Complaint, error) {
	return nil, common.ErrNotConfigured
}

func (stubRecords) UpdateStatus(context.Context, string, complaints.Status, time.Time) error {
	return common.ErrNotConfigured
}

func (stubRecords) ListByUser(context.Context, string) ([]*complaints.Complaint, error) {
	return nil, common.ErrNotConfigured
}

func (stubRecords) ListByStatus(context.Context, complaints.Status) ([]*complaints.Complaint, error) {
	return nil, common.ErrNotConfigured
}

func (stubRecords) Get(context.Context, string) (*complaints.Complaint, error) {
	return nil, common.ErrNotConfigured
}

type stubObjects struct{}

func (stubObjects) Upload(context.Context, string, io.ReadSeeker, int64, string) (string, error) {
	return "", common.ErrNotConfigured
}

func (stubObjects) Remove(context.Context, string) error {
	return common.ErrNotConfigured
}

func (stubObjects) URL(context.Context, string) (string, error) {
	return "", common.ErrNotConfigured
}
