// Package staff manages the institution's collaborator records: the people
// who can be assigned to activities and log into the dashboard.
package staff

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrExists reports a create with an email or username already taken.
	ErrExists = errors.New("email or username already registered")
	// ErrNotFound reports a lookup for a staff id that does not exist.
	ErrNotFound = errors.New("staff member not found")
)

// Member is one collaborator record. PasswordHash never leaves the server.
type Member struct {
	ID            uuid.UUID `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	ContactNumber string    `json:"contact_number"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	PhotoPath     string    `json:"photo_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store provides database operations for staff members
type Store struct {
	db *sql.DB
}

// NewStore creates a new staff store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new staff member. Email and username must be unique;
// a taken value surfaces as ErrExists.
func (s *Store) Create(ctx context.Context, m *Member) error {
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.Username = strings.TrimSpace(m.Username)

	var existing int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM staff WHERE email = $1 OR username = $2`,
		m.Email, m.Username).Scan(&existing)
	if err != nil {
		return err
	}
	if existing > 0 {
		return ErrExists
	}

	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO staff (id, first_name, last_name, contact_number, email,
			username, password_hash, photo_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.FirstName, m.LastName, m.ContactNumber, m.Email,
		m.Username, m.PasswordHash, m.PhotoPath, m.CreatedAt)
	if err != nil {
		// Unique indexes backstop the pre-check against concurrent creates.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrExists
		}
		return err
	}
	return nil
}

// Get retrieves a staff member by ID
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	m := &Member{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, contact_number, email, username,
			photo_path, created_at
		FROM staff WHERE id = $1`, id).
		Scan(&m.ID, &m.FirstName, &m.LastName, &m.ContactNumber, &m.Email,
			&m.Username, &m.PhotoPath, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List retrieves all staff members ordered by name
func (s *Store) List(ctx context.Context) ([]*Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, contact_number, email, username,
			photo_path, created_at
		FROM staff ORDER BY first_name, last_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.ContactNumber,
			&m.Email, &m.Username, &m.PhotoPath, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Update replaces the editable profile fields of a staff member
func (s *Store) Update(ctx context.Context, m *Member) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE staff SET first_name = $2, last_name = $3, contact_number = $4,
			email = $5, username = $6
		WHERE id = $1`,
		m.ID, m.FirstName, m.LastName, m.ContactNumber,
		strings.ToLower(strings.TrimSpace(m.Email)), strings.TrimSpace(m.Username))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a staff member and returns the photo path (empty when the
// member had none) so the caller can remove the file as well.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	var photoPath string
	err := s.db.QueryRowContext(ctx, `
		SELECT photo_path FROM staff WHERE id = $1`, id).Scan(&photoPath)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id); err != nil {
		return "", err
	}
	return photoPath, nil
}
