package staff

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStoreTest(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	return NewStore(db), mock, func() { db.Close() }
}

func TestCreateNormalizesAndInserts(t *testing.T) {
	store, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM staff")).
		WithArgs("maria@example.edu", "maria.s").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO staff")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := &Member{
		FirstName: "Maria",
		Email:     " Maria@Example.EDU ",
		Username:  " maria.s ",
	}
	require.NoError(t, store.Create(context.Background(), m))
	assert.Equal(t, "maria@example.edu", m.Email)
	assert.Equal(t, "maria.s", m.Username)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateEmail(t *testing.T) {
	store, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM staff")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := store.Create(context.Background(), &Member{Email: "taken@example.edu", Username: "x"})
	assert.ErrorIs(t, err, ErrExists)
}

func TestCreateUniqueIndexBackstop(t *testing.T) {
	store, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM staff")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO staff")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "staff_email_key"})

	err := store.Create(context.Background(), &Member{Email: "raced@example.edu", Username: "x"})
	assert.ErrorIs(t, err, ErrExists)
}

func TestDeleteReturnsPhotoPath(t *testing.T) {
	store, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT photo_path FROM staff")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"photo_path"}).AddRow("uploads/abc.jpg"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM staff")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	photo, err := store.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "uploads/abc.jpg", photo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissing(t *testing.T) {
	store, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT photo_path FROM staff")).
		WillReturnRows(sqlmock.NewRows([]string{"photo_path"}))

	_, err := store.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListScansMembers(t *testing.T) {
	store, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "contact_number", "email", "username",
		"photo_path", "created_at",
	}).
		AddRow(uuid.New(), "Ana", "Lima", "1199999", "ana@example.edu", "ana.l", "", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM staff ORDER BY first_name")).
		WillReturnRows(rows)

	members, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Ana", members[0].FirstName)
}
