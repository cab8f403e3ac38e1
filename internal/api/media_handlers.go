package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avelardo/cinetrack/internal/models"
	"github.com/avelardo/cinetrack/internal/store"
)

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	opts := store.MediaListOptions{
		MediaType: models.MediaType(r.URL.Query().Get("type")),
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortDir:   r.URL.Query().Get("sort_dir"),
	}
	if v := r.URL.Query().Get("uploaded"); v != "" {
		uploaded := v == "true" || v == "1"
		opts.Uploaded = &uploaded
	}

	items, err := s.store.ListMedia(user.ID, opts)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list media")
		return
	}
	if items == nil {
		items = []*models.MediaItem{}
	}
	RespondWithJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetMediaItem(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "mediaID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid media ID")
		return
	}

	item, err := s.store.GetMediaItem(id, user.ID)
	if err == sql.ErrNoRows {
		RespondWithError(w, http.StatusNotFound, "Media item not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load media item")
		return
	}
	RespondWithJSON(w, http.StatusOK, item)
}

// handleToggleUploaded flips the upload mark on one of the user's items
// and returns the new state.
func (s *Server) handleToggleUploaded(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "mediaID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid media ID")
		return
	}

	uploaded, err := s.store.ToggleUploadMark(user.ID, id)
	if errors.Is(err, sql.ErrNoRows) {
		RespondWithError(w, http.StatusNotFound, "Media item not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to update upload mark")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]bool{"uploaded": uploaded})
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	collections, err := s.store.ListCollections(user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list collections")
		return
	}
	if collections == nil {
		collections = []*models.Collection{}
	}
	RespondWithJSON(w, http.StatusOK, collections)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	stats, err := s.store.GetMediaStats(user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	at, err := s.store.GetLastSyncAt(user.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load sync status")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{"last_sync_at": at})
}
