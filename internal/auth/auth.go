package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edusuite/institution-admin/internal/config"
)

// ErrInvalidCredentials reports a failed login attempt. The handler maps it
// to a generic 401 so the response does not reveal which half was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Session represents an authenticated administrator session
type Session struct {
	AdminID   string    `json:"admin_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager handles credential checks and in-memory session tracking
type Manager struct {
	cfg       config.AuthConfig
	db        *sql.DB
	sessions  map[string]*Session
	sessionMu sync.RWMutex
}

// NewManager creates an authentication manager backed by the admins table
func NewManager(cfg config.AuthConfig, db *sql.DB) *Manager {
	return &Manager{
		cfg:      cfg,
		db:       db,
		sessions: make(map[string]*Session),
	}
}

// generateSessionID creates a random session ID
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Login verifies the credentials against the admins table and creates a
// session on success.
func (m *Manager) Login(ctx context.Context, email, password string) (string, *Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var id, name, passwordHash string
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, password_hash FROM admins WHERE email = $1`, email).
		Scan(&id, &name, &passwordHash)
	if err == sql.ErrNoRows {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return "", nil, err
	}

	session := &Session{
		AdminID:   id,
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(m.cfg.SessionTTL()),
	}

	m.sessionMu.Lock()
	m.sessions[sessionID] = session
	m.sessionMu.Unlock()

	log.Printf("[Auth] admin logged in: %s", email)
	return sessionID, session, nil
}

// HandleLogin processes a credential login and sets the session cookie
func (m *Manager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	sessionID, session, err := m.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, `{"error":"invalid email or password"}`, http.StatusUnauthorized)
			return
		}
		log.Printf("[Auth] login failed: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(m.cfg.SessionTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"authenticated": true,
		"email":         session.Email,
		"name":          session.Name,
	})
}

// HandleLogout removes the session and clears the cookie
func (m *Manager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err == nil {
		m.sessionMu.Lock()
		delete(m.sessions, cookie.Value)
		m.sessionMu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:   m.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

// HandleUserInfo returns the current admin's info as JSON
func (m *Manager) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	session := m.GetSession(r)
	if session == nil {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"authenticated": false})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"authenticated": true,
		"email":         session.Email,
		"name":          session.Name,
	})
}

// GetSession returns the live session for a request, or nil
func (m *Manager) GetSession(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return nil
	}

	m.sessionMu.RLock()
	session, ok := m.sessions[cookie.Value]
	m.sessionMu.RUnlock()
	if !ok {
		return nil
	}

	if time.Now().After(session.ExpiresAt) {
		m.sessionMu.Lock()
		delete(m.sessions, cookie.Value)
		m.sessionMu.Unlock()
		return nil
	}
	return session
}

// IsAuthenticated reports whether the request carries a live session
func (m *Manager) IsAuthenticated(r *http.Request) bool {
	return m.GetSession(r) != nil
}

// HashPassword produces the bcrypt hash stored in the admins and staff tables
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
