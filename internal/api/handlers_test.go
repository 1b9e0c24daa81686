package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/institution-admin/internal/activity"
	"github.com/edusuite/institution-admin/internal/auth"
	"github.com/edusuite/institution-admin/internal/config"
	"github.com/edusuite/institution-admin/internal/photo"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Uploads.Dir = t.TempDir()
	cfg.Uploads.MaxSizeMB = 5
	cfg.CORS.AllowedOrigins = []string{"http://localhost:5500"}
	cfg.Auth.CookieName = "institution_session"
	cfg.Auth.SessionTTLMins = 60
	return cfg
}

func setupTestServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock, *config.Config) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig(t)
	photos, err := photo.NewService(cfg.Uploads.Dir, cfg.Uploads.MaxSizeBytes())
	require.NoError(t, err)

	t.Setenv("DEV_MODE", "true")
	h := NewHandlers(db, redisClient, cfg, photos)
	router := SetupRoutes(h, nil, cfg)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, mock, cfg
}

func TestImportActivitiesRejectsNonArray(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	resp, err := http.Post(srv.URL+"/api/activities", "application/json",
		bytes.NewBufferString(`{"description":"Math"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "JSON array")
}

func TestImportActivitiesReturnsReport(t *testing.T) {
	srv, mock, _ := setupTestServer(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("Math class", "Alice Souza", sql.NullString{String: "2023-01-15", Valid: true}).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO activities`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	payload := `[{"description":"Math class","assignedPersonName":"Alice Souza","individualActivityDate":"2023-01-15"}]`
	resp, err := http.Post(srv.URL+"/api/activities", "application/json",
		bytes.NewBufferString(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report activity.ImportReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportActivitiesDuplicateIsStillOK(t *testing.T) {
	srv, mock, _ := setupTestServer(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	payload := `[{"description":"Math class","assignedPersonName":"Alice Souza","individualActivityDate":"2023-01-15"}]`
	resp, err := http.Post(srv.URL+"/api/activities", "application/json",
		bytes.NewBufferString(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report activity.ImportReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 1, report.Duplicates)
	assert.Contains(t, report.Messages, "Row 1: duplicate record")
}

func TestListActivitiesRejectsBadDate(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/api/activities?date=15-01-2023")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetActivityInvalidID(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/api/activities/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateStaffConflict(t *testing.T) {
	srv, mock, _ := setupTestServer(t)

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, value := range map[string]string{
		"first_name": "Ana", "last_name": "Lima",
		"email": "ana@example.edu", "username": "ana.l", "password": "s3cret",
	} {
		require.NoError(t, mw.WriteField(field, value))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/staff", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUploadActivitiesRejectsGarbage(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "broken.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("definitely not a workbook"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/activities/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestUploadActivitiesMissingFile(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/activities/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadProgressUnknownJob(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/api/activities/upload/unknown-job/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheckReportsStatus(t *testing.T) {
	srv, mock, _ := setupTestServer(t)

	mock.ExpectPing()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "up", body.Checks["database"])
	assert.Equal(t, "up", body.Checks["redis"])
}

func TestAPIRequiresAuthentication(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testConfig(t)
	photos, err := photo.NewService(cfg.Uploads.Dir, cfg.Uploads.MaxSizeBytes())
	require.NoError(t, err)

	t.Setenv("DEV_MODE", "")
	t.Setenv("ENVIRONMENT", "")
	manager := auth.NewManager(cfg.Auth, db)
	h := NewHandlers(db, nil, cfg, photos)
	router := SetupRoutes(h, manager, cfg)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/activities")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
