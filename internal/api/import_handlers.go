package api

import (
	"errors"
	"net/http"

	"github.com/avelardo/cinetrack/internal/importer"
)

func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	snap, err := s.manager.Runner(user.ID).Snapshot()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load import progress")
		return
	}
	RespondWithJSON(w, http.StatusOK, snap)
}

// handleImportStart starts a fresh import or resumes a paused one; the
// persisted checkpoint decides which, so both routes land here.
func (s *Server) handleImportStart(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if s.app.Config.Catalog.APIKey == "" {
		RespondWithError(w, http.StatusServiceUnavailable, "Catalog API key is not configured")
		return
	}

	runner := s.manager.Runner(user.ID)
	if err := runner.Start(); err != nil {
		switch {
		case errors.Is(err, importer.ErrAlreadyRunning):
			RespondWithError(w, http.StatusConflict, "Import is already running")
		case errors.Is(err, importer.ErrLocked):
			RespondWithError(w, http.StatusConflict, "Import is running in another session")
		case errors.Is(err, importer.ErrCompleted):
			RespondWithError(w, http.StatusConflict, "Import already completed; reset progress to run again")
		default:
			RespondWithError(w, http.StatusInternalServerError, "Failed to start import")
		}
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": string(runner.State())})
}

func (s *Server) handleImportPause(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	runner := s.manager.Runner(user.ID)
	if err := runner.Pause(); err != nil {
		RespondWithError(w, http.StatusConflict, "Import is not running")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": string(runner.State())})
}

func (s *Server) handleImportReset(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	runner := s.manager.Runner(user.ID)
	if err := runner.Reset(); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reset import progress")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": string(runner.State())})
}

// handleImportUnlock clears an advisory lock left behind by a session
// that went away mid-import.
func (s *Server) handleImportUnlock(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	runner := s.manager.Runner(user.ID)
	if err := runner.Unlock(); err != nil {
		if errors.Is(err, importer.ErrAlreadyRunning) {
			RespondWithError(w, http.StatusConflict, "Import is running in this session")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to unlock import")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}
