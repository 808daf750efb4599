package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/complaints"
	"github.com/dmitrijs2005/rashdrive/internal/dbx"
)

const selectColumns = `id, created_at, updated_at, vehicle_number, location, incident_date, description, media_url, status, user_id`

// PostgresStore implements Store over database/sql with the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, in complaints.Insert) (*complaints.Complaint, error) {
	query := `
		INSERT INTO complaints (vehicle_number, location, incident_date, description, media_url, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	var incident sql.NullTime
	if in.IncidentDate != nil {
		incident = sql.NullTime{Time: *in.IncidentDate, Valid: true}
	}

	c := &complaints.Complaint{
		VehicleNumber: in.VehicleNumber,
		Location:      in.Location,
		IncidentDate:  in.IncidentDate,
		Description:   in.Description,
		MediaURL:      in.MediaURL,
		Status:        in.Status,
		UserID:        in.UserID,
	}
	err := s.db.QueryRowContext(ctx, query,
		in.VehicleNumber, in.Location, incident, in.Description, in.MediaURL, string(in.Status), in.UserID,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert complaint: %w", err)
	}
	return c, nil
}

// UpdateStatus implements Store. The current status is read under a row lock
// so concurrent reviewers cannot reopen a resolved record.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status complaints.Status, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", common.ErrInvalidTransition, status)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM complaints WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		if err != nil {
			return fmt.Errorf("lock complaint: %w", err)
		}

		if !complaints.CanTransition(complaints.Status(current), status) {
			return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, current, status)
		}

		res, err := tx.ExecContext(ctx, `UPDATE complaints SET status = $1, updated_at = $2 WHERE id = $3`, string(status), at, id)
		if err != nil {
			return fmt.Errorf("update complaint: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("unexpected rows affected: %d", n)
		}
		return nil
	})
}

// ListByUser implements Store.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*complaints.Complaint, error) {
	query := `SELECT ` + selectColumns + ` FROM complaints WHERE user_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, userID)
}

// ListByStatus implements Store.
func (s *PostgresStore) ListByStatus(ctx context.Context, status complaints.Status) ([]*complaints.Complaint, error) {
	query := `SELECT ` + selectColumns + ` FROM complaints WHERE status = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, string(status))
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*complaints.Complaint, error) {
	query := `SELECT ` + selectColumns + ` FROM complaints WHERE id = $1`
	c, err := scanComplaint(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*complaints.Complaint, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select complaints: %w", err)
	}
	defer rows.Close()

	var result []*complaints.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row scanner) (*complaints.Complaint, error) {
	var (
		c        complaints.Complaint
		updated  sql.NullTime
		incident sql.NullTime
		status   string
	)
	if err := row.Scan(
		&c.ID, &c.CreatedAt, &updated, &c.VehicleNumber, &c.Location,
		&incident, &c.Description, &c.MediaURL, &status, &c.UserID,
	); err != nil {
		return nil, err
	}
	if updated.Valid {
		t := updated.Time
		c.UpdatedAt = &t
	}
	if incident.Valid {
		t := incident.Time
		c.IncidentDate = &t
	}
	c.Status = complaints.Status(status)
	return &c, nil
}
