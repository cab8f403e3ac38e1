// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avelardo/cinetrack/internal/core"
	"github.com/avelardo/cinetrack/internal/importer"
	"github.com/avelardo/cinetrack/internal/store"
	"github.com/avelardo/cinetrack/internal/websocket"
)

// Server holds the dependencies for our API.
type Server struct {
	app     *core.App
	db      *sql.DB
	store   *store.Store
	manager *importer.Manager
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// NewServer creates a new Server instance.
func NewServer(app *core.App, manager *importer.Manager) *Server {
	return &Server{
		app:     app,
		db:      app.DB,
		store:   store.New(app.DB),
		manager: manager,
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/users/login", s.handleLogin)
	r.Get("/api/version", s.handleGetVersion)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Post("/api/users/logout", s.handleLogout)
		r.Get("/api/users/me", s.handleGetMe)

		r.Route("/api", func(r chi.Router) {
			// Bulk import control
			r.Route("/import", func(r chi.Router) {
				r.Get("/progress", s.handleImportProgress)
				r.Post("/start", s.handleImportStart)
				r.Post("/pause", s.handleImportPause)
				r.Post("/resume", s.handleImportStart) // resume and start share a path
				r.Post("/reset", s.handleImportReset)
				r.Post("/unlock", s.handleImportUnlock)
			})

			// Imported library
			r.Get("/media", s.handleListMedia)
			r.Get("/media/{mediaID}", s.handleGetMediaItem)
			r.Post("/media/{mediaID}/uploaded", s.handleToggleUploaded)
			r.Get("/collections", s.handleListCollections)
			r.Get("/stats", s.handleGetStats)
			r.Get("/sync/status", s.handleSyncStatus)

			// Admin user management
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.AdminOnlyMiddleware)
				r.Get("/users", s.handleAdminListUsers)
				r.Post("/users", s.handleAdminCreateUser)
				r.Delete("/users/{userID}", s.handleAdminDeleteUser)
			})
		})

		// Progress push channel
		r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWs(s.app.Hub, w, r)
		})
	})

	return r
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}
