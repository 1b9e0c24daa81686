package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/institution-admin/internal/config"
)

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:        true,
		CookieName:     "institution_session",
		SessionTTLMins: 60,
	}
}

func TestLoginSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, password_hash FROM admins")).
		WithArgs("admin@example.edu").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "password_hash"}).
			AddRow("1", "Admin", hash))

	m := NewManager(testConfig(), db)
	sessionID, session, err := m.Login(context.Background(), " Admin@Example.edu ", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
	assert.Equal(t, "admin@example.edu", session.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := HashPassword("correct")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, password_hash FROM admins")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "password_hash"}).
			AddRow("1", "Admin", hash))

	m := NewManager(testConfig(), db)
	_, _, err = m.Login(context.Background(), "admin@example.edu", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, password_hash FROM admins")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "password_hash"}))

	m := NewManager(testConfig(), db)
	_, _, err = m.Login(context.Background(), "nobody@example.edu", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	mock.ExpectQuery("SELECT id, name, password_hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "password_hash"}).
			AddRow("1", "Admin", hash))

	m := NewManager(testConfig(), db)
	sessionID, _, err := m.Login(context.Background(), "admin@example.edu", "pw")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/staff", nil)
	r.AddCookie(&http.Cookie{Name: "institution_session", Value: sessionID})
	assert.True(t, m.IsAuthenticated(r))

	// Logout invalidates the session
	w := httptest.NewRecorder()
	m.HandleLogout(w, r)
	assert.False(t, m.IsAuthenticated(r))
}

func TestUnknownCookieNotAuthenticated(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewManager(testConfig(), db)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "institution_session", Value: "forged"})
	assert.False(t, m.IsAuthenticated(r))
}
