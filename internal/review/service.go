// Package review serves complaint reads and police status updates. Each call
// checks the caller's snapshot, so access does not depend on which page
// linked to it.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/backend/objects"
	"github.com/dmitrijs2005/rashdrive/internal/backend/records"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/complaints"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
	"github.com/dmitrijs2005/rashdrive/internal/session"
)

// Service reads and updates complaints for a session snapshot.
type Service struct {
	records records.Store
	objects objects.Store
	log     logging.Logger
	now     func() time.Time
}

// NewService wires the service to the backend capabilities.
func NewService(rec records.Store, obj objects.Store, log logging.Logger) *Service {
	return &Service{records: rec, objects: obj, log: log, now: time.Now}
}

// Detail is a complaint with a readable link to its media.
type Detail struct {
	*complaints.Complaint
	MediaLink string
}

// Mine lists the caller's complaints, newest first.
func (s *Service) Mine(ctx context.Context, snap session.Snapshot) ([]*complaints.Complaint, error) {
	if !snap.Authenticated() {
		return nil, common.ErrAuthRequired
	}
	return s.records.ListByUser(ctx, snap.UserID())
}

// Pending lists all pending complaints. Police only.
func (s *Service) Pending(ctx context.Context, snap session.Snapshot) ([]*complaints.Complaint, error) {
	if err := requirePolice(snap); err != nil {
		return nil, err
	}
	return s.records.ListByStatus(ctx, complaints.StatusPending)
}

// UpdateStatus moves a complaint to status and stamps updated_at. Police only.
func (s *Service) UpdateStatus(ctx context.Context, snap session.Snapshot, id string, status complaints.Status) error {
	if err := requirePolice(snap); err != nil {
		return err
	}
	if err := s.records.UpdateStatus(ctx, id, status, s.now().UTC()); err != nil {
		s.log.Warn(ctx, "status update failed", "complaint_id", id, "status", status, "user_id", snap.UserID(), "error", err)
		return err
	}
	s.log.Info(ctx, "complaint status updated", "complaint_id", id, "status", status, "user_id", snap.UserID())
	return nil
}

// Detail returns one complaint to its owner or to police. Other callers get
// common.ErrorNotFound so that ids cannot be enumerated.
func (s *Service) Detail(ctx context.Context, snap session.Snapshot, id string) (*Detail, error) {
	if !snap.Authenticated() {
		return nil, common.ErrAuthRequired
	}

	c, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != snap.UserID() && !snap.IsPolice {
		return nil, common.ErrorNotFound
	}

	d := &Detail{Complaint: c}
	if c.HasMedia() {
		link, err := s.objects.URL(ctx, c.MediaURL)
		if err != nil {
			// the record is still useful without its media
			s.log.Warn(ctx, "media link unavailable", "complaint_id", id, "error", err)
		} else {
			d.MediaLink = link
		}
	}
	return d, nil
}

func requirePolice(snap session.Snapshot) error {
	if !snap.Authenticated() {
		return common.ErrAuthRequired
	}
	if !snap.IsPolice {
		return fmt.Errorf("%w: police role required", common.ErrForbidden)
	}
	return nil
}

// IsDenied reports whether err is an access failure rather than a backend
// failure.
func IsDenied(err error) bool {
	return errors.Is(err, common.ErrAuthRequired) || errors.Is(err, common.ErrForbidden)
}
