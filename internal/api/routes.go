package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/edusuite/institution-admin/internal/auth"
	"github.com/edusuite/institution-admin/internal/config"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, authManager *auth.Manager, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - allow credentials for auth cookies
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	// Auth routes (no auth required). /login and /logout mirror the paths the
	// dashboard frontend has always posted to.
	if authManager != nil {
		r.Post("/login", authManager.HandleLogin)
		r.Post("/logout", authManager.HandleLogout)
		r.Post("/auth/login", authManager.HandleLogin)
		r.Post("/auth/logout", authManager.HandleLogout)
		r.Get("/auth/user", authManager.HandleUserInfo)
	}

	// API routes (protected by auth middleware)
	devMode := os.Getenv("DEV_MODE") == "true" || os.Getenv("ENVIRONMENT") == "development"

	r.Route("/api", func(r chi.Router) {
		if authManager != nil && !devMode {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					if !authManager.IsAuthenticated(req) {
						w.Header().Set("Content-Type", "application/json")
						w.WriteHeader(http.StatusUnauthorized)
						w.Write([]byte(`{"error":"unauthorized"}`))
						return
					}
					next.ServeHTTP(w, req)
				})
			})
		}

		// Scheduled activities
		r.Route("/activities", func(r chi.Router) {
			r.Get("/", h.ListActivities)
			r.Get("/by-date", h.ListActivitiesByDate)
			r.Post("/", h.ImportActivities)
			r.Post("/upload", h.UploadActivities)
			r.Get("/upload/{jobID}/progress", h.GetUploadProgress)
			r.Get("/{id}", h.GetActivity)
			r.Put("/{id}", h.UpdateActivity)
			r.Patch("/{id}/confirm", h.ConfirmActivity)
			r.Delete("/{id}", h.DeleteActivity)
		})

		// Staff management
		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.CreateStaff)
			r.Get("/{id}", h.GetStaff)
			r.Put("/{id}", h.UpdateStaff)
			r.Delete("/{id}", h.DeleteStaff)
		})
	})

	// Serve static files for the dashboard frontend (SPA fallback to index.html)
	spaHandler(r, "./web/dist")

	return r
}

// spaHandler serves static files and falls back to index.html for SPA routing
func spaHandler(r chi.Router, staticPath string) {
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path

		// Skip API routes
		if strings.HasPrefix(path, "/api") || strings.HasPrefix(path, "/health") {
			http.NotFound(w, req)
			return
		}

		filePath := filepath.Join(staticPath, path)
		if _, err := os.Stat(filePath); err == nil {
			http.ServeFile(w, req, filePath)
			return
		}

		// For SPA routing, serve index.html for unknown paths
		indexPath := filepath.Join(staticPath, "index.html")
		http.ServeFile(w, req, indexPath)
	})
}
