// Package report runs an incident submission: optional media upload, then the
// record insert that references it.
package report

import (
	"context"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/backend/objects"
	"github.com/dmitrijs2005/rashdrive/internal/backend/records"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/complaints"
	"github.com/dmitrijs2005/rashdrive/internal/logging"
	"github.com/dmitrijs2005/rashdrive/internal/media"
	"github.com/dmitrijs2005/rashdrive/internal/session"
	"github.com/dmitrijs2005/rashdrive/internal/validate"
	"github.com/oklog/ulid/v2"
)

// Draft is the submitted form. Media is nil when nothing was attached.
type Draft struct {
	VehicleNumber string
	Location      string
	IncidentDate  *time.Time
	Description   string
	Media         *media.Attachment
}

// Stage names the remote step that failed.
type Stage string

const (
	StageUpload Stage = "upload"
	StageInsert Stage = "insert"
)

// StageError wraps a remote failure. Error returns the backend's message
// unchanged so it can be shown to the user verbatim.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Submitter creates complaints on behalf of the signed-in user.
type Submitter struct {
	records records.Store
	objects objects.Store
	log     logging.Logger
	guard   *Guard

	// newName returns the random part of a media object name.
	newName func() string
}

// NewSubmitter wires a Submitter to the backend capabilities.
func NewSubmitter(rec records.Store, obj objects.Store, log logging.Logger) *Submitter {
	return &Submitter{
		records: rec,
		objects: obj,
		log:     log,
		guard:   NewGuard(),
		newName: func() string { return ulid.Make().String() },
	}
}

// MediaPath builds "<userID>/<name><ext>".
func MediaPath(userID, name, ext string) string {
	return userID + "/" + name + ext
}

// Submit validates d and, if the snapshot carries an identity, uploads the
// attachment and inserts the record. Returned errors are, in order of the
// checks: common.ErrAuthRequired, common.ErrSubmissionInProgress,
// validate.Errors, a media error, or a *StageError.
func (s *Submitter) Submit(ctx context.Context, snap session.Snapshot, d Draft) (*complaints.Complaint, error) {
	if !snap.Authenticated() {
		return nil, common.ErrAuthRequired
	}
	uid := snap.UserID()

	if !s.guard.Acquire(uid) {
		return nil, common.ErrSubmissionInProgress
	}
	defer s.guard.Release(uid)

	if errs := validate.Report(validate.ReportInput{VehicleNumber: d.VehicleNumber, Location: d.Location}); !errs.OK() {
		return nil, errs
	}

	var att *media.Attachment
	if d.Media != nil {
		var err error
		att, err = media.Check(d.Media.Name, d.Media.Size, d.Media.ContentType, d.Media.Body)
		if err != nil {
			return nil, err
		}
	}

	log := s.log.With("user_id", uid)

	mediaPath := ""
	if att != nil {
		path := MediaPath(uid, s.newName(), att.Ext())
		stored, err := s.objects.Upload(ctx, path, att.Body, att.Size, att.ContentType)
		if err != nil {
			log.Warn(ctx, "media upload failed", "path", path, "error", err)
			return nil, &StageError{Stage: StageUpload, Err: err}
		}
		mediaPath = stored
	}

	c, err := s.records.Insert(ctx, complaints.Insert{
		VehicleNumber: d.VehicleNumber,
		Location:      d.Location,
		IncidentDate:  d.IncidentDate,
		Description:   d.Description,
		MediaURL:      mediaPath,
		Status:        complaints.StatusPending,
		UserID:        uid,
	})
	if err != nil {
		log.Warn(ctx, "complaint insert failed", "error", err)
		if mediaPath != "" {
			s.removeOrphan(ctx, log, mediaPath)
		}
		return nil, &StageError{Stage: StageInsert, Err: err}
	}

	log.Info(ctx, "complaint submitted", "complaint_id", c.ID, "media", mediaPath != "")
	return c, nil
}

// removeOrphan deletes an uploaded object whose record was never created.
// It runs on a detached context so a cancelled request still cleans up.
func (s *Submitter) removeOrphan(ctx context.Context, log logging.Logger, path string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.objects.Remove(ctx, path); err != nil {
		log.Error(ctx, "orphaned media not removed", "path", path, "error", err)
		return
	}
	log.Info(ctx, "orphaned media removed", "path", path)
}
