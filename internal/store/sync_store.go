package store

import (
	"database/sql"
	"time"
)

// TouchLastSyncAt records that the trending sync just ran for a user.
func (s *Store) TouchLastSyncAt(userID int64) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_status (user_id, last_sync_at) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_sync_at = excluded.last_sync_at`,
		userID, time.Now())
	return err
}

// GetLastSyncAt returns when the trending sync last completed for a
// user, or nil when it never has.
func (s *Store) GetLastSyncAt(userID int64) (*time.Time, error) {
	var at sql.NullTime
	err := s.db.QueryRow("SELECT last_sync_at FROM sync_status WHERE user_id = ?", userID).Scan(&at)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !at.Valid {
		return nil, nil
	}
	return &at.Time, nil
}
