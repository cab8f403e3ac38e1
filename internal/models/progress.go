package models

import "time"

// Phase is one of the two sequential import passes. The importer walks
// all movie pages first, then all series pages.
type Phase string

const (
	PhaseMovies Phase = "movies"
	PhaseSeries Phase = "series"
)

// ImportProgress is the authoritative resumption checkpoint for one
// user's bulk import. One row per user; partial updates are
// last-write-wins across sessions, the counters only ever grow.
type ImportProgress struct {
	UserID           int64      `json:"-"`
	Phase            Phase      `json:"phase"`
	MoviesPage       int        `json:"movies_page"`
	SeriesPage       int        `json:"series_page"`
	MoviesTotalPages int        `json:"movies_total_pages"`
	SeriesTotalPages int        `json:"series_total_pages"`
	MoviesImported   int        `json:"movies_imported"`
	SeriesImported   int        `json:"series_imported"`
	MoviesSkipped    int        `json:"movies_skipped"`
	SeriesSkipped    int        `json:"series_skipped"`
	CollectionsFound int        `json:"collections_found"`
	IsImporting      bool       `json:"is_importing"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Page returns the next page to fetch for the given phase.
func (p *ImportProgress) Page(phase Phase) int {
	if phase == PhaseSeries {
		return p.SeriesPage
	}
	return p.MoviesPage
}

// TotalPages returns the last reported page bound for the given phase.
func (p *ImportProgress) TotalPages(phase Phase) int {
	if phase == PhaseSeries {
		return p.SeriesTotalPages
	}
	return p.MoviesTotalPages
}

// ProgressUpdate is the payload broadcast over the websocket hub after
// every import step and on runner state changes.
type ProgressUpdate struct {
	JobID    string  `json:"jobId"`
	UserID   int64   `json:"user_id"`
	Phase    Phase   `json:"phase"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	Status   string  `json:"status"` // e.g. "running", "paused", "completed", "failed"
	Done     bool    `json:"done"`
}
