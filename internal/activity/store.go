package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicate reports an insert that collided with the natural-key unique
// index. The import pipeline treats it as a duplicate outcome, not a failure.
var ErrDuplicate = errors.New("activity already exists")

// ErrNotFound reports a lookup for an activity id that does not exist.
var ErrNotFound = errors.New("activity not found")

// Store provides database operations for activities
type Store struct {
	db *sql.DB
}

// NewStore creates a new activity store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// nullable maps the domain's empty-string absence convention onto SQL NULL.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Exists checks storage for a record matching the natural key. An empty
// date matches only records whose date is NULL, which is what
// IS NOT DISTINCT FROM gives us.
func (s *Store) Exists(ctx context.Context, description, person, date string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM activities
			WHERE description = $1 AND assigned_person = $2
			  AND activity_date IS NOT DISTINCT FROM $3
		)`, description, person, nullable(date)).Scan(&exists)
	return exists, err
}

// Insert persists a new activity, applying storage defaults. Missing times
// and dates are stored as NULL rather than sentinel values. A natural-key
// collision surfaces as ErrDuplicate.
func (s *Store) Insert(ctx context.Context, a *Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, description, assigned_person, scheduled_days,
			start_time, end_time, activity_date, location, confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.Description, a.AssignedPerson, a.ScheduledDays,
		nullable(a.StartTime), nullable(a.EndTime), nullable(a.Date),
		a.Location, a.Confirmed, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

const activityColumns = `id, description, assigned_person, scheduled_days,
	start_time, end_time, activity_date, location, confirmed, created_at, updated_at`

func scanActivity(row interface{ Scan(...interface{}) error }) (*Activity, error) {
	a := &Activity{}
	var start, end, date sql.NullString
	err := row.Scan(&a.ID, &a.Description, &a.AssignedPerson, &a.ScheduledDays,
		&start, &end, &date, &a.Location, &a.Confirmed, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.StartTime = start.String
	a.EndTime = end.String
	a.Date = date.String
	return a, nil
}

// Get retrieves an activity by ID
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Activity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities WHERE id = $1`, id)
	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// List retrieves all activities ordered by date
func (s *Store) List(ctx context.Context) ([]*Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities ORDER BY activity_date ASC NULLS LAST, start_time ASC NULLS LAST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// ListByDate retrieves the activities scheduled on one calendar date,
// ordered by start time for the daily agenda view.
func (s *Store) ListByDate(ctx context.Context, date string) ([]*Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities WHERE activity_date = $1
		ORDER BY start_time ASC NULLS LAST`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// ListByMonth retrieves the activities of one calendar month for the
// monthly calendar view. Dates are stored as YYYY-MM-DD text, so a prefix
// match selects the month.
func (s *Store) ListByMonth(ctx context.Context, year, month int) ([]*Activity, error) {
	prefix := fmt.Sprintf("%04d-%02d-%%", year, month)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities WHERE activity_date LIKE $1
		ORDER BY activity_date ASC, start_time ASC NULLS LAST`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

func collectActivities(rows *sql.Rows) ([]*Activity, error) {
	var out []*Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update replaces the editable fields of an activity
func (s *Store) Update(ctx context.Context, a *Activity) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activities SET description = $2, assigned_person = $3,
			scheduled_days = $4, start_time = $5, end_time = $6,
			activity_date = $7, location = $8, confirmed = $9, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.Description, a.AssignedPerson, a.ScheduledDays,
		nullable(a.StartTime), nullable(a.EndTime), nullable(a.Date),
		a.Location, a.Confirmed)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return requireRow(res)
}

// SetConfirmed flips the confirmation flag on an activity
func (s *Store) SetConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE activities SET confirmed = $2, updated_at = NOW() WHERE id = $1`,
		id, confirmed)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes an activity
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Count returns the total number of stored activities
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&n)
	return n, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
