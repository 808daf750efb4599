package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/media"
	"github.com/dmitrijs2005/rashdrive/internal/report"
	"github.com/dmitrijs2005/rashdrive/internal/validate"
)

// Report asks for the incident details and submits them.
func (a *App) Report(ctx context.Context) error {
	a.refresh(ctx)
	if !a.isLoggedIn() {
		a.println("Authentication required: please log in to submit a report.")
		return common.ErrAuthRequired
	}

	plate, err := getSimpleText(a.reader, "Vehicle number (e.g. KA01AB1234)", a.out)
	if err != nil {
		return err
	}
	location, err := getSimpleText(a.reader, "Location", a.out)
	if err != nil {
		return err
	}
	date, err := getSimpleText(a.reader, "Date of incident (YYYY-MM-DD, empty to skip)", a.out)
	if err != nil {
		return err
	}
	description, err := GetMultiline(a.reader, "Description", a.out)
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Photo or video file (empty to skip)", a.out)
	if err != nil {
		return err
	}

	draft := report.Draft{
		VehicleNumber: strings.ToUpper(plate),
		Location:      location,
		Description:   description,
	}
	errs := validate.Report(validate.ReportInput{VehicleNumber: draft.VehicleNumber, Location: draft.Location})
	if date != "" {
		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			errs["incident_date"] = "Invalid date"
		} else {
			draft.IncidentDate = &t
		}
	}
	if !errs.OK() {
		a.printErrors(errs)
		return errs
	}

	if path != "" {
		att, closeFn, err := openAttachment(path)
		if err != nil {
			a.println("Attachment rejected:", err)
			return err
		}
		defer closeFn()
		draft.Media = att
	}

	c, err := a.submitter.Submit(ctx, a.mirror.Snapshot(), draft)
	if err != nil {
		var stageErr *report.StageError
		switch {
		case errors.Is(err, common.ErrAuthRequired):
			a.println("Authentication required: please log in to submit a report.")
		case errors.Is(err, common.ErrSubmissionInProgress):
			a.println("Your previous report is still being submitted.")
		case errors.As(err, &stageErr):
			a.println("Submission failed:", stageErr)
		default:
			a.println("Submission failed:", err)
		}
		return err
	}

	a.printf("Report submitted (id %s).\n", c.ID)
	return nil
}

// openAttachment opens a local file as an attachment. The declared type is
// derived from the file extension.
func openAttachment(path string) (*media.Attachment, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}

	att, err := media.Check(filepath.Base(path), info.Size(), typeForExt(filepath.Ext(path)), f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return att, func() { _ = f.Close() }, nil
}

// typeForExt maps a file extension to a content type, falling back to the
// accepted media types when the system table has no entry.
func typeForExt(ext string) string {
	ext = strings.ToLower(ext)
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	if ext == ".jpeg" {
		return "image/jpeg"
	}
	for ct, e := range media.Allowed {
		if e == ext {
			return ct
		}
	}
	return ""
}
