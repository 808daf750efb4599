// Package complaints defines the incident record persisted by the backend and
// the payload used to create one.
package complaints

import "time"

// Status is the review state of a complaint.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusResolved
}

// CanTransition reports whether a record may move from one status to another.
// A resolved complaint never goes back to pending.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return !(from == StatusResolved && to == StatusPending)
}

// Complaint is a persisted incident record.
type Complaint struct {
	ID            string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	VehicleNumber string
	Location      string
	IncidentDate  *time.Time
	Description   string
	MediaURL      string
	Status        Status
	UserID        string
}

// HasMedia reports whether a media object is attached.
func (c *Complaint) HasMedia() bool {
	return c.MediaURL != ""
}

// Insert is the record-creation payload. Field names follow the column names
// of the complaints table.
type Insert struct {
	VehicleNumber string     `json:"vehicle_number"`
	Location      string     `json:"location"`
	IncidentDate  *time.Time `json:"incident_date,omitempty"`
	Description   string     `json:"description,omitempty"`
	MediaURL      string     `json:"media_url"`
	Status        Status     `json:"status"`
	UserID        string     `json:"user_id"`
}
