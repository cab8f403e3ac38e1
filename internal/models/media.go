// This file defines the core data structures (models) for the application.
// These structs represent the imported catalog items and their groupings.

package models

import "time"

// MediaType classifies an imported item. It is assigned once at import
// time from the catalog's genre tags and never changed afterwards.
type MediaType string

const (
	MediaTypeMovie       MediaType = "movie"
	MediaTypeSeries      MediaType = "series"
	MediaTypeAnime       MediaType = "anime"
	MediaTypeDocumentary MediaType = "documentary"
)

// MediaItem is one imported catalog entry for one user. Rows are
// insert-only: stale metadata is intentionally never refreshed, the
// (user_id, external_id, media_type) unique index is the dedup key.
type MediaItem struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"-"`
	ExternalID   int64      `json:"external_id"`
	MediaType    MediaType  `json:"media_type"`
	Title        string     `json:"title"`
	PosterPath   string     `json:"poster_path,omitempty"`
	Overview     string     `json:"overview,omitempty"`
	Genres       []string   `json:"genres"`
	Popularity   float64    `json:"popularity"`
	ReleaseDate  *time.Time `json:"release_date,omitempty"`
	CollectionID *int64     `json:"collection_id,omitempty"`
	Uploaded     bool       `json:"uploaded"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Collection is a named grouping of movies (a franchise), created lazily
// the first time an imported item references it.
type Collection struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"-"`
	ExternalID   int64     `json:"external_id"`
	Name         string    `json:"name"`
	PosterPath   string    `json:"poster_path,omitempty"`
	BackdropPath string    `json:"backdrop_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// MediaStats summarizes a user's library for the stats endpoint.
type MediaStats struct {
	Total    int            `json:"total"`
	Uploaded int            `json:"uploaded"`
	Pending  int            `json:"pending"`
	ByType   map[string]int `json:"by_type"`
}
