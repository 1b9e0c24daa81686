package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/edusuite/institution-admin/internal/auth"
	"github.com/edusuite/institution-admin/internal/photo"
	"github.com/edusuite/institution-admin/internal/staff"
)

// CreateStaff registers a new staff member from a multipart form. The photo
// part is optional.
//
//	POST /api/staff
func (h *Handlers) CreateStaff(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.Uploads.MaxSizeBytes()); err != nil {
		respondError(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	member := &staff.Member{
		FirstName:     strings.TrimSpace(r.FormValue("first_name")),
		LastName:      strings.TrimSpace(r.FormValue("last_name")),
		ContactNumber: strings.TrimSpace(r.FormValue("contact_number")),
		Email:         r.FormValue("email"),
		Username:      r.FormValue("username"),
	}
	password := r.FormValue("password")

	if member.FirstName == "" || member.LastName == "" || member.Email == "" ||
		member.Username == "" || password == "" {
		respondError(w, http.StatusBadRequest,
			"first_name, last_name, email, username and password are required")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to create staff member")
		return
	}
	member.PasswordHash = hash

	if file, header, ferr := r.FormFile("photo"); ferr == nil {
		defer file.Close()
		saved, perr := h.photos.Save(file, header.Filename)
		if errors.Is(perr, photo.ErrTooLarge) || errors.Is(perr, photo.ErrUnsupportedFormat) {
			respondError(w, http.StatusBadRequest, perr.Error())
			return
		}
		if perr != nil {
			respondSafeError(w, http.StatusInternalServerError, perr, "Failed to store photo")
			return
		}
		member.PhotoPath = saved.Path
	}

	err = h.staff.Create(r.Context(), member)
	if errors.Is(err, staff.ErrExists) {
		// Roll back the orphaned photo before reporting the conflict.
		h.photos.Delete(member.PhotoPath)
		respondError(w, http.StatusConflict, "email or username already registered")
		return
	}
	if err != nil {
		h.photos.Delete(member.PhotoPath)
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to create staff member")
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

// ListStaff returns all staff members ordered by name.
//
//	GET /api/staff
func (h *Handlers) ListStaff(w http.ResponseWriter, r *http.Request) {
	members, err := h.staff.List(r.Context())
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to list staff")
		return
	}
	respondJSON(w, http.StatusOK, members)
}

// GetStaff returns one staff member by id.
//
//	GET /api/staff/{id}
func (h *Handlers) GetStaff(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid staff id")
		return
	}

	member, err := h.staff.Get(r.Context(), id)
	if errors.Is(err, staff.ErrNotFound) {
		respondError(w, http.StatusNotFound, "staff member not found")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to load staff member")
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// UpdateStaff replaces the editable profile fields of one staff member.
// Password and photo changes go through their own endpoints.
//
//	PUT /api/staff/{id}
func (h *Handlers) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid staff id")
		return
	}

	var member staff.Member
	if err := decodeJSON(r, &member); err != nil {
		respondError(w, http.StatusBadRequest, "invalid staff payload: "+err.Error())
		return
	}
	if member.FirstName == "" || member.LastName == "" || member.Email == "" || member.Username == "" {
		respondError(w, http.StatusBadRequest, "first_name, last_name, email and username are required")
		return
	}

	member.ID = id
	err = h.staff.Update(r.Context(), &member)
	if errors.Is(err, staff.ErrNotFound) {
		respondError(w, http.StatusNotFound, "staff member not found")
		return
	}
	if errors.Is(err, staff.ErrExists) {
		respondError(w, http.StatusConflict, "email or username already registered")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to update staff member")
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// DeleteStaff removes a staff member and their stored photo.
//
//	DELETE /api/staff/{id}
func (h *Handlers) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid staff id")
		return
	}

	photoPath, err := h.staff.Delete(r.Context(), id)
	if errors.Is(err, staff.ErrNotFound) {
		respondError(w, http.StatusNotFound, "staff member not found")
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to delete staff member")
		return
	}
	h.photos.Delete(photoPath)
	w.WriteHeader(http.StatusNoContent)
}
