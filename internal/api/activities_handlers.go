package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/edusuite/institution-admin/internal/activity"
)

// ListActivities returns all scheduled activities, optionally filtered to a
// calendar date or a calendar month.
//
//	GET /api/activities
//	GET /api/activities?date=2023-01-15
//	GET /api/activities?year=2023&month=1
func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")

	var (
		records []*activity.Activity
		err     error
	)
	switch {
	case date != "":
		if _, perr := time.Parse("2006-01-02", date); perr != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		records, err = h.activities.ListByDate(r.Context(), date)
	case q.Get("month") != "" || q.Get("year") != "":
		year, yerr := strconv.Atoi(q.Get("year"))
		month, merr := strconv.Atoi(q.Get("month"))
		if yerr != nil || merr != nil || month < 1 || month > 12 || year < 1 {
			respondError(w, http.StatusBadRequest, "month filter requires numeric year and month (1-12)")
			return
		}
		records, err = h.activities.ListByMonth(r.Context(), year, month)
	default:
		records, err = h.activities.List(r.Context())
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to list activities")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// ListActivitiesByDate returns the agenda for one calendar date ordered by
// start time.
//
//	GET /api/activities/by-date?date=2023-01-15
func (h *Handlers) ListActivitiesByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	records, err := h.activities.ListByDate(r.Context(), date)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to list activities")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// GetActivity returns one activity by id.
//
//	GET /api/activities/{id}
func (h *Handlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	rec, err := h.activities.Get(r.Context(), id)
	if errors.Is(err, activity.ErrNotFound) {
		respondError(w, http.StatusNotFound, "activity not found")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to load activity")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// ImportActivities accepts a JSON array of normalized activity records and
// imports them with duplicate skipping. The response carries per-row
// outcomes, so a partially-duplicate batch is still a 200.
//
//	POST /api/activities
func (h *Handlers) ImportActivities(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, h.config.Uploads.MaxSizeBytes()))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	r.Body.Close()

	// The client must send an array, not a single object.
	if firstNonSpaceByte(body) != '[' {
		respondError(w, http.StatusBadRequest, "request body must be a JSON array of activities")
		return
	}

	var records []activity.Activity
	if err := json.Unmarshal(body, &records); err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity payload: "+err.Error())
		return
	}

	report, err := h.importer.Import(r.Context(), records)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Import aborted")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// UpdateActivity replaces the editable fields of one activity.
//
//	PUT /api/activities/{id}
func (h *Handlers) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	var rec activity.Activity
	if err := decodeJSON(r, &rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity payload: "+err.Error())
		return
	}
	if rec.Description == "" || rec.AssignedPerson == "" {
		respondError(w, http.StatusBadRequest, "description and assignedPersonName are required")
		return
	}

	rec.ID = id
	err = h.activities.Update(r.Context(), &rec)
	if errors.Is(err, activity.ErrNotFound) {
		respondError(w, http.StatusNotFound, "activity not found")
		return
	}
	if errors.Is(err, activity.ErrDuplicate) {
		respondError(w, http.StatusConflict, "another activity already has this description, person and date")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to update activity")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// ConfirmActivity toggles the confirmed flag on one activity.
//
//	PATCH /api/activities/{id}/confirm
func (h *Handlers) ConfirmActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	var body struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	err = h.activities.SetConfirmed(r.Context(), id, body.Confirmed)
	if errors.Is(err, activity.ErrNotFound) {
		respondError(w, http.StatusNotFound, "activity not found")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to update activity")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "confirmed": body.Confirmed})
}

// DeleteActivity removes one activity.
//
//	DELETE /api/activities/{id}
func (h *Handlers) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	err = h.activities.Delete(r.Context(), id)
	if errors.Is(err, activity.ErrNotFound) {
		respondError(w, http.StatusNotFound, "activity not found")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to delete activity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
