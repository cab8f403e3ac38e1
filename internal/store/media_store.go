package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avelardo/cinetrack/internal/models"
)

// MediaExists reports whether a media item is already imported for this
// user. This is the importer's cheap pre-check; the unique index on
// (user_id, external_id, media_type) is the hard guarantee behind it.
func (s *Store) MediaExists(userID, externalID int64, mediaType models.MediaType) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM media_items WHERE user_id = ? AND external_id = ? AND media_type = ?",
		userID, externalID, mediaType,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertMediaItem inserts a new media item. It returns ErrDuplicate when
// the (user, external id, type) key already exists, so that check-then-
// insert races across sessions surface as a countable skip.
func (s *Store) InsertMediaItem(item *models.MediaItem) error {
	genres, err := json.Marshal(item.Genres)
	if err != nil {
		return fmt.Errorf("failed to encode genres: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO media_items
		(user_id, external_id, media_type, title, poster_path, overview, genres, popularity, release_date, collection_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.UserID, item.ExternalID, item.MediaType, item.Title, item.PosterPath,
		item.Overview, string(genres), item.Popularity, item.ReleaseDate, item.CollectionID, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	item.ID, _ = res.LastInsertId()
	return nil
}

// FindOrCreateCollection returns the local id of the collection with the
// given external id, creating it on first sight. The created flag lets
// the importer count newly discovered collections.
func (s *Store) FindOrCreateCollection(userID, externalID int64, name, posterPath, backdropPath string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(`
		INSERT INTO collections (user_id, external_id, name, poster_path, backdrop_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, external_id) DO NOTHING
		RETURNING id`,
		userID, externalID, name, posterPath, backdropPath, time.Now(),
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, err
	}

	// The collection already existed; fetch it.
	err = s.db.QueryRow(
		"SELECT id FROM collections WHERE user_id = ? AND external_id = ?",
		userID, externalID,
	).Scan(&id)
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

// ListCollections retrieves all of a user's collections by name.
func (s *Store) ListCollections(userID int64) ([]*models.Collection, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, external_id, name, poster_path, backdrop_path, created_at
		FROM collections WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []*models.Collection
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.ID, &c.UserID, &c.ExternalID, &c.Name, &c.PosterPath, &c.BackdropPath, &c.CreatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, &c)
	}
	return collections, rows.Err()
}

// MediaListOptions are the filters accepted by ListMedia.
type MediaListOptions struct {
	MediaType models.MediaType // empty means all types
	Uploaded  *bool            // nil means both uploaded and pending
	Search    string           // case-insensitive title substring
	SortBy    string           // "title", "popularity", "release_date" or "created_at"
	SortDir   string           // "asc" or "desc"
}

// ListMedia retrieves a user's imported items with the upload mark
// joined in.
func (s *Store) ListMedia(userID int64, opts MediaListOptions) ([]*models.MediaItem, error) {
	query := `
		SELECT m.id, m.user_id, m.external_id, m.media_type, m.title, m.poster_path,
		       m.overview, m.genres, m.popularity, m.release_date, m.collection_id,
		       m.created_at, um.media_item_id IS NOT NULL AS uploaded
		FROM media_items m
		LEFT JOIN upload_marks um ON um.media_item_id = m.id AND um.user_id = m.user_id
		WHERE m.user_id = ?`
	args := []interface{}{userID}

	if opts.MediaType != "" {
		query += " AND m.media_type = ?"
		args = append(args, opts.MediaType)
	}
	if opts.Uploaded != nil {
		if *opts.Uploaded {
			query += " AND um.media_item_id IS NOT NULL"
		} else {
			query += " AND um.media_item_id IS NULL"
		}
	}
	if opts.Search != "" {
		query += " AND m.title LIKE ? COLLATE NOCASE"
		args = append(args, "%"+opts.Search+"%")
	}

	sortBy := "m.title"
	switch opts.SortBy {
	case "popularity":
		sortBy = "m.popularity"
	case "release_date":
		sortBy = "m.release_date"
	case "created_at":
		sortBy = "m.created_at"
	}
	dir := "ASC"
	if opts.SortDir == "desc" {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, dir)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetMediaItem retrieves one of a user's media items by its local id.
func (s *Store) GetMediaItem(id, userID int64) (*models.MediaItem, error) {
	row := s.db.QueryRow(`
		SELECT m.id, m.user_id, m.external_id, m.media_type, m.title, m.poster_path,
		       m.overview, m.genres, m.popularity, m.release_date, m.collection_id,
		       m.created_at, um.media_item_id IS NOT NULL AS uploaded
		FROM media_items m
		LEFT JOIN upload_marks um ON um.media_item_id = m.id AND um.user_id = m.user_id
		WHERE m.id = ? AND m.user_id = ?`, id, userID)
	return scanMediaItem(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMediaItem(row rowScanner) (*models.MediaItem, error) {
	var item models.MediaItem
	var genres string
	var releaseDate sql.NullTime
	var collectionID sql.NullInt64
	err := row.Scan(&item.ID, &item.UserID, &item.ExternalID, &item.MediaType, &item.Title,
		&item.PosterPath, &item.Overview, &genres, &item.Popularity, &releaseDate,
		&collectionID, &item.CreatedAt, &item.Uploaded)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(genres), &item.Genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres: %w", err)
	}
	if releaseDate.Valid {
		item.ReleaseDate = &releaseDate.Time
	}
	if collectionID.Valid {
		item.CollectionID = &collectionID.Int64
	}
	return &item, nil
}

// GetMediaStats summarizes a user's library.
func (s *Store) GetMediaStats(userID int64) (*models.MediaStats, error) {
	stats := &models.MediaStats{ByType: make(map[string]int)}

	rows, err := s.db.Query(
		"SELECT media_type, COUNT(*) FROM media_items WHERE user_id = ? GROUP BY media_type", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var mediaType string
		var count int
		if err := rows.Scan(&mediaType, &count); err != nil {
			return nil, err
		}
		stats.ByType[mediaType] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRow("SELECT COUNT(*) FROM upload_marks WHERE user_id = ?", userID).Scan(&stats.Uploaded)
	if err != nil {
		return nil, err
	}
	stats.Pending = stats.Total - stats.Uploaded
	return stats, nil
}
