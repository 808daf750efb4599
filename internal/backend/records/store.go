// Package records is the record capability of the managed backend: complaint
// rows in Postgres.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/complaints"
)

// Store persists complaints.
type Store interface {
	// Insert creates a record and returns it with id and created_at filled.
	Insert(ctx context.Context, in complaints.Insert) (*complaints.Complaint, error)
	// UpdateStatus sets status and stamps updated_at. Moving a resolved record
	// back to pending fails with common.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, status complaints.Status, at time.Time) error
	// ListByUser returns the records owned by userID, newest first.
	ListByUser(ctx context.Context, userID string) ([]*complaints.Complaint, error)
	// ListByStatus returns records in the given status, newest first.
	ListByStatus(ctx context.Context, status complaints.Status) ([]*complaints.Complaint, error)
	Get(ctx context.Context, id string) (*complaints.Complaint, error)
}
