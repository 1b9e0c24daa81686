package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edusuite/institution-admin/internal/spreadsheet"
	"github.com/edusuite/institution-admin/internal/worker"
)

// UploadActivities accepts a spreadsheet in a multipart "file" part, runs
// the normalize-and-import pipeline and returns the final report.
//
//	POST /api/activities/upload
func (h *Handlers) UploadActivities(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.Uploads.MaxSizeBytes()); err != nil {
		respondError(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.config.Uploads.MaxSizeBytes()+1))
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to read upload")
		return
	}
	if int64(len(data)) > h.config.Uploads.MaxSizeBytes() {
		respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		return
	}

	result, err := h.uploads.Process(r.Context(), data, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, spreadsheet.ErrEmptyWorkbook),
			errors.Is(err, spreadsheet.ErrNoWorksheet),
			errors.Is(err, spreadsheet.ErrNoHeaders):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondSafeError(w, http.StatusInternalServerError, err, "Failed to process spreadsheet")
		}
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetUploadProgress returns the Redis-tracked progress of an upload job.
//
//	GET /api/activities/upload/{jobID}/progress
func (h *Handlers) GetUploadProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	progress, err := h.uploads.GetProgress(r.Context(), jobID)
	if errors.Is(err, worker.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, "upload job not found")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to load progress")
		return
	}
	respondJSON(w, http.StatusOK, progress)
}
