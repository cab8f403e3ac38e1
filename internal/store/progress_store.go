package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/avelardo/cinetrack/internal/models"
)

// GetOrCreateProgress returns the user's import checkpoint, creating the
// defaults row on first use.
func (s *Store) GetOrCreateProgress(userID int64) (*models.ImportProgress, error) {
	_, err := s.db.Exec("INSERT OR IGNORE INTO import_progress (user_id) VALUES (?)", userID)
	if err != nil {
		return nil, err
	}

	var p models.ImportProgress
	var completedAt sql.NullTime
	err = s.db.QueryRow(`
		SELECT user_id, phase, movies_page, series_page, movies_total_pages, series_total_pages,
		       movies_imported, series_imported, movies_skipped, series_skipped,
		       collections_found, is_importing, completed_at, updated_at
		FROM import_progress WHERE user_id = ?`, userID).Scan(
		&p.UserID, &p.Phase, &p.MoviesPage, &p.SeriesPage, &p.MoviesTotalPages, &p.SeriesTotalPages,
		&p.MoviesImported, &p.SeriesImported, &p.MoviesSkipped, &p.SeriesSkipped,
		&p.CollectionsFound, &p.IsImporting, &completedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}

// StepResultDelta carries everything one import step persists: additive
// counter deltas plus the overwritten cursor fields for the phase the
// step ran in.
type StepResultDelta struct {
	Phase            models.Phase // phase the step ran in
	Imported         int
	Skipped          int
	CollectionsAdded int
	NextPage         int // next page for Phase (page just done + 1)
	TotalPages       int
	NextPhase        models.Phase
	Complete         bool
}

// ApplyStepResult folds a finished step into the checkpoint in a single
// statement. Counters are incremented rather than overwritten so they
// stay monotonic even when two sessions race on the same row; the
// cursor fields are last-write-wins. completed_at is only ever set
// once.
func (s *Store) ApplyStepResult(userID int64, d StepResultDelta) error {
	pageCol, totalCol := "movies_page", "movies_total_pages"
	importedCol, skippedCol := "movies_imported", "movies_skipped"
	if d.Phase == models.PhaseSeries {
		pageCol, totalCol = "series_page", "series_total_pages"
		importedCol, skippedCol = "series_imported", "series_skipped"
	}

	query := fmt.Sprintf(`
		UPDATE import_progress SET
			%s = %s + ?,
			%s = %s + ?,
			collections_found = collections_found + ?,
			%s = ?,
			%s = ?,
			phase = ?,
			is_importing = ?,
			completed_at = CASE WHEN ? THEN COALESCE(completed_at, ?) ELSE completed_at END,
			updated_at = ?
		WHERE user_id = ?`,
		importedCol, importedCol, skippedCol, skippedCol, pageCol, totalCol)

	now := time.Now()
	_, err := s.db.Exec(query,
		d.Imported, d.Skipped, d.CollectionsAdded,
		d.NextPage, d.TotalPages, d.NextPhase, !d.Complete,
		d.Complete, now, now, userID,
	)
	return err
}

// SetImporting flips the advisory cross-session lock flag. Other
// sessions read it to decide whether an import loop is already being
// driven somewhere.
func (s *Store) SetImporting(userID int64, importing bool) error {
	_, err := s.db.Exec(
		"UPDATE import_progress SET is_importing = ?, updated_at = ? WHERE user_id = ?",
		importing, time.Now(), userID,
	)
	return err
}

// ResetProgress restores the checkpoint row to its initial values:
// movies phase, both pages back to 1, all counters zero, completion
// cleared.
func (s *Store) ResetProgress(userID int64) error {
	_, err := s.db.Exec(`
		UPDATE import_progress SET
			phase = 'movies',
			movies_page = 1, series_page = 1,
			movies_total_pages = 0, series_total_pages = 0,
			movies_imported = 0, series_imported = 0,
			movies_skipped = 0, series_skipped = 0,
			collections_found = 0,
			is_importing = 0,
			completed_at = NULL,
			updated_at = ?
		WHERE user_id = ?`, time.Now(), userID)
	return err
}
