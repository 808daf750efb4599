package web

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/rashdrive/internal/complaints"
	"github.com/dmitrijs2005/rashdrive/internal/review"
)

// denyPolice emits the single denial notice and redirect of the police area.
func denyPolice(w http.ResponseWriter, r *http.Request, v *Visitor) {
	v.Notify(NoticeError, "Access Denied", "You don't have permission to access this page")
	redirect(w, r, "/")
}

func (s *Server) handlePolice(w http.ResponseWriter, r *http.Request, v *Visitor) {
	snap := v.Mirror.Snapshot()
	if !snap.IsPolice {
		denyPolice(w, r, v)
		return
	}

	list, err := s.review.Pending(r.Context(), snap)
	if review.IsDenied(err) {
		denyPolice(w, r, v)
		return
	}
	if err != nil {
		v.Notify(NoticeError, "Error", messageOr(err, "Failed to load complaints"))
	}
	s.render(w, r, v, http.StatusOK, "police", view{Title: "Police Dashboard", Data: list})
}

func (s *Server) handleStatusUpdate(w http.ResponseWriter, r *http.Request, v *Visitor) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if !s.csrfOK(w, r, v) {
		return
	}

	err := s.review.UpdateStatus(r.Context(), v.Mirror.Snapshot(), r.PathValue("id"), complaintStatus(r.PostFormValue("status")))
	switch {
	case review.IsDenied(err):
		denyPolice(w, r, v)
		return
	case err != nil:
		v.Notify(NoticeError, "Error", "Failed to update complaint status")
	default:
		v.Notify(NoticeSuccess, "Success", "Complaint status updated successfully")
	}
	redirect(w, r, "/police")
}

func complaintStatus(s string) complaints.Status {
	return complaints.Status(strings.ToLower(strings.TrimSpace(s)))
}
