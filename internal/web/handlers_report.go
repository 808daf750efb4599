package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/media"
	"github.com/dmitrijs2005/rashdrive/internal/report"
	"github.com/dmitrijs2005/rashdrive/internal/validate"
)

const (
	// form fields and multipart overhead on top of the media limit
	maxReportBody = media.MaxSize + 1<<20
	// parts larger than this are spooled to temporary files
	maxReportMemory = 8 << 20
)

func (s *Server) handleReportForm(w http.ResponseWriter, r *http.Request, v *Visitor) {
	s.render(w, r, v, http.StatusOK, "report", view{Title: "Report an incident"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, v *Visitor) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReportBody)
	if err := r.ParseMultipartForm(maxReportMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			v.Notify(NoticeError, "File too large", "Attachments are limited to 50 MiB.")
			redirect(w, r, "/report")
			return
		}
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	if !s.csrfOK(w, r, v) {
		return
	}

	form := map[string]string{
		"vehicle_number": strings.TrimSpace(r.PostFormValue("vehicle_number")),
		"location":       strings.TrimSpace(r.PostFormValue("location")),
		"incident_date":  strings.TrimSpace(r.PostFormValue("incident_date")),
		"description":    strings.TrimSpace(r.PostFormValue("description")),
	}
	draft := report.Draft{
		VehicleNumber: form["vehicle_number"],
		Location:      form["location"],
		Description:   form["description"],
	}
	errs := validate.Report(validate.ReportInput{VehicleNumber: draft.VehicleNumber, Location: draft.Location})

	if d := form["incident_date"]; d != "" {
		t, err := time.Parse(time.DateOnly, d)
		if err != nil {
			errs["incident_date"] = "Invalid date"
		} else {
			draft.IncidentDate = &t
		}
	}

	att, err := attachmentFrom(r)
	if err != nil {
		errs["media"] = err.Error()
	}
	if att != nil {
		if c, ok := att.Body.(io.Closer); ok {
			defer c.Close()
		}
	}
	draft.Media = att

	page := view{Title: "Report an incident", Form: form}
	if !errs.OK() {
		page.Errors = errs
		s.render(w, r, v, http.StatusUnprocessableEntity, "report", page)
		return
	}

	_, err = s.submitter.Submit(r.Context(), v.Mirror.Snapshot(), draft)

	var verrs validate.Errors
	var stageErr *report.StageError
	switch {
	case err == nil:
		v.Notify(NoticeSuccess, "Report submitted", "Your report has been submitted successfully.")
		redirect(w, r, "/complaints")

	case errors.Is(err, common.ErrAuthRequired):
		v.Notify(NoticeError, "Authentication required", "Please sign in to submit a report.")
		redirect(w, r, "/login?next=/report")

	case errors.Is(err, common.ErrSubmissionInProgress):
		v.Notify(NoticeInfo, "Please wait", "Your previous report is still being submitted.")
		s.render(w, r, v, http.StatusConflict, "report", page)

	case errors.As(err, &verrs):
		page.Errors = verrs
		s.render(w, r, v, http.StatusUnprocessableEntity, "report", page)

	case errors.Is(err, media.ErrTooLarge), errors.Is(err, media.ErrUnsupportedType):
		page.Errors = validate.Errors{"media": err.Error()}
		s.render(w, r, v, http.StatusUnprocessableEntity, "report", page)

	case errors.As(err, &stageErr):
		v.Notify(NoticeError, "Submission failed", messageOr(stageErr, genericFailure))
		s.render(w, r, v, http.StatusBadGateway, "report", page)

	default:
		s.log.Error(r.Context(), "submission failed", "visitor_id", v.ID, "error", err)
		v.Notify(NoticeError, "Submission failed", genericFailure)
		s.render(w, r, v, http.StatusInternalServerError, "report", page)
	}
}

// attachmentFrom checks the optional "media" part. A missing file is not an
// error.
func attachmentFrom(r *http.Request) (*media.Attachment, error) {
	file, header, err := r.FormFile("media")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if header.Filename == "" && header.Size == 0 {
		_ = file.Close()
		return nil, nil
	}
	att, err := media.Check(header.Filename, header.Size, declaredType(header), file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return att, nil
}

func declaredType(h *multipart.FileHeader) string {
	return h.Header.Get("Content-Type")
}

func (s *Server) handleMyComplaints(w http.ResponseWriter, r *http.Request, v *Visitor) {
	list, err := s.review.Mine(r.Context(), v.Mirror.Snapshot())
	if errors.Is(err, common.ErrAuthRequired) {
		v.Notify(NoticeError, "Authentication required", "Please sign in to see your complaints.")
		redirect(w, r, "/login?next=/complaints")
		return
	}
	if err != nil {
		v.Notify(NoticeError, "Error", messageOr(err, "Failed to load complaints"))
	}
	s.render(w, r, v, http.StatusOK, "complaints", view{Title: "My complaints", Data: list})
}

func (s *Server) handleComplaint(w http.ResponseWriter, r *http.Request, v *Visitor) {
	id := r.PathValue("id")

	d, err := s.review.Detail(r.Context(), v.Mirror.Snapshot(), id)
	switch {
	case err == nil:
		s.render(w, r, v, http.StatusOK, "complaint", view{Title: "Complaint", Data: d})
	case errors.Is(err, common.ErrAuthRequired):
		v.Notify(NoticeError, "Authentication required", "Please sign in to see this complaint.")
		redirect(w, r, "/login?next=/complaints/"+id)
	case errors.Is(err, common.ErrorNotFound):
		s.render(w, r, v, http.StatusNotFound, "error", view{Title: "Not found", Data: "This complaint does not exist."})
	default:
		v.Notify(NoticeError, "Error", messageOr(err, "Failed to load complaint"))
		redirect(w, r, "/complaints")
	}
}
