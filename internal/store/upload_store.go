package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ToggleUploadMark flips the uploaded flag for one of the user's media
// items and returns the new state. The mark is a pure membership row,
// fully independent of the import pipeline.
func (s *Store) ToggleUploadMark(userID, mediaItemID int64) (bool, error) {
	// The item must belong to the user before we touch marks.
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM media_items WHERE id = ? AND user_id = ?", mediaItemID, userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("media item %d not found: %w", mediaItemID, sql.ErrNoRows)
	}
	if err != nil {
		return false, err
	}

	res, err := s.db.Exec(
		"DELETE FROM upload_marks WHERE user_id = ? AND media_item_id = ?", userID, mediaItemID)
	if err != nil {
		return false, err
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return false, nil
	}

	_, err = s.db.Exec(
		"INSERT INTO upload_marks (user_id, media_item_id, created_at) VALUES (?, ?, ?)",
		userID, mediaItemID, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent toggle won; the mark exists either way.
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// ListUploadMarks returns the media item ids the user has marked as
// uploaded.
func (s *Store) ListUploadMarks(userID int64) ([]int64, error) {
	rows, err := s.db.Query(
		"SELECT media_item_id FROM upload_marks WHERE user_id = ? ORDER BY media_item_id ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
