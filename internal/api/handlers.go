package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edusuite/institution-admin/internal/activity"
	"github.com/edusuite/institution-admin/internal/config"
	"github.com/edusuite/institution-admin/internal/photo"
	"github.com/edusuite/institution-admin/internal/staff"
	"github.com/edusuite/institution-admin/internal/worker"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	activities *activity.Store
	importer   *activity.Importer
	staff      *staff.Store
	photos     *photo.Service
	uploads    *worker.UploadService
	config     *config.Config

	db          *sql.DB
	redisClient *redis.Client
	startTime   time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, redisClient *redis.Client, cfg *config.Config, photos *photo.Service) *Handlers {
	activities := activity.NewStore(db)
	importer := activity.NewImporter(activities)
	return &Handlers{
		activities:  activities,
		importer:    importer,
		staff:       staff.NewStore(db),
		photos:      photos,
		uploads:     worker.NewUploadService(importer, redisClient),
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		startTime:   time.Now(),
	}
}

// HealthCheck reports the status of the server and its dependencies.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "healthy"

	if err := h.db.PingContext(r.Context()); err != nil {
		checks["database"] = "down"
		status = "unhealthy"
	} else {
		checks["database"] = "up"
	}

	if h.redisClient == nil {
		checks["redis"] = "not_configured"
	} else if err := h.redisClient.Ping(r.Context()).Err(); err != nil {
		checks["redis"] = "down"
		if status == "healthy" {
			status = "degraded"
		}
	} else {
		checks["redis"] = "up"
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status": status,
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
		"checks": checks,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondSafeError logs the internal error and sends a sanitized message so
// database details and file paths never reach API consumers.
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	if internalErr != nil {
		log.Printf("ERROR [%d]: %s: %v", code, publicMsg, internalErr)
	}
	respondError(w, code, publicMsg)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func firstNonSpaceByte(data []byte) byte {
	trimmed := strings.TrimLeft(string(data), " \t\r\n")
	if trimmed == "" {
		return 0
	}
	return trimmed[0]
}
