package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/avelardo/cinetrack/internal/auth"
	"github.com/avelardo/cinetrack/internal/models"
	"github.com/avelardo/cinetrack/internal/store"
	"github.com/avelardo/cinetrack/internal/testutil"
)

// testMediaItem builds a minimal valid item for store tests.
func testMediaItem(userID, externalID int64, mediaType models.MediaType, title string) *models.MediaItem {
	release := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	return &models.MediaItem{
		UserID:      userID,
		ExternalID:  externalID,
		MediaType:   mediaType,
		Title:       title,
		Genres:      []string{"Drama"},
		Popularity:  42.5,
		ReleaseDate: &release,
	}
}

func createTestUser(t *testing.T, s *store.Store, username string) *models.User {
	t.Helper()
	passwordHash, _ := auth.HashPassword("password123")
	user, err := s.CreateUser(username, passwordHash, "user")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func TestMediaStore_InsertAndDedup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createTestUser(t, s, "mediauser")

	item := testMediaItem(user.ID, 100, models.MediaTypeMovie, "Inception")
	if err := s.InsertMediaItem(item); err != nil {
		t.Fatalf("InsertMediaItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("Expected inserted item to get a local id")
	}

	t.Run("Duplicate Insert Returns ErrDuplicate", func(t *testing.T) {
		dup := testMediaItem(user.ID, 100, models.MediaTypeMovie, "Inception")
		err := s.InsertMediaItem(dup)
		if !errors.Is(err, store.ErrDuplicate) {
			t.Fatalf("Expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("Same External ID Different Type Is Allowed", func(t *testing.T) {
		other := testMediaItem(user.ID, 100, models.MediaTypeSeries, "Inception (TV)")
		if err := s.InsertMediaItem(other); err != nil {
			t.Fatalf("Insert with different media type failed: %v", err)
		}
	})

	t.Run("Same External ID Different User Is Allowed", func(t *testing.T) {
		other := createTestUser(t, s, "mediauser2")
		theirs := testMediaItem(other.ID, 100, models.MediaTypeMovie, "Inception")
		if err := s.InsertMediaItem(theirs); err != nil {
			t.Fatalf("Insert for a different user failed: %v", err)
		}
	})

	t.Run("MediaExists", func(t *testing.T) {
		exists, err := s.MediaExists(user.ID, 100, models.MediaTypeMovie)
		if err != nil {
			t.Fatalf("MediaExists failed: %v", err)
		}
		if !exists {
			t.Error("Expected item to exist")
		}
		exists, _ = s.MediaExists(user.ID, 999, models.MediaTypeMovie)
		if exists {
			t.Error("Expected missing item to not exist")
		}
	})
}

func TestMediaStore_Collections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createTestUser(t, s, "colluser")

	id1, created, err := s.FindOrCreateCollection(user.ID, 500, "The Matrix Collection", "/p.jpg", "/b.jpg")
	if err != nil {
		t.Fatalf("FindOrCreateCollection failed: %v", err)
	}
	if !created {
		t.Error("Expected first call to create the collection")
	}

	id2, created, err := s.FindOrCreateCollection(user.ID, 500, "The Matrix Collection", "/p.jpg", "/b.jpg")
	if err != nil {
		t.Fatalf("Second FindOrCreateCollection failed: %v", err)
	}
	if created {
		t.Error("Expected second call to find the existing collection")
	}
	if id1 != id2 {
		t.Errorf("Expected same collection id, got %d and %d", id1, id2)
	}

	collections, err := s.ListCollections(user.ID)
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}
	if len(collections) != 1 {
		t.Fatalf("Expected 1 collection, got %d", len(collections))
	}
	if collections[0].Name != "The Matrix Collection" {
		t.Errorf("Unexpected collection name: %s", collections[0].Name)
	}
}

func TestMediaStore_ListMedia(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createTestUser(t, s, "listuser")

	items := []*models.MediaItem{
		testMediaItem(user.ID, 1, models.MediaTypeMovie, "Alpha"),
		testMediaItem(user.ID, 2, models.MediaTypeMovie, "Beta"),
		testMediaItem(user.ID, 3, models.MediaTypeSeries, "Gamma Show"),
		testMediaItem(user.ID, 4, models.MediaTypeAnime, "Delta Anime"),
	}
	for _, it := range items {
		if err := s.InsertMediaItem(it); err != nil {
			t.Fatalf("InsertMediaItem failed: %v", err)
		}
	}
	// Mark one item as uploaded.
	if _, err := s.ToggleUploadMark(user.ID, items[0].ID); err != nil {
		t.Fatalf("ToggleUploadMark failed: %v", err)
	}

	t.Run("All Items Sorted By Title", func(t *testing.T) {
		got, err := s.ListMedia(user.ID, store.MediaListOptions{})
		if err != nil {
			t.Fatalf("ListMedia failed: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("Expected 4 items, got %d", len(got))
		}
		if got[0].Title != "Alpha" {
			t.Errorf("Expected 'Alpha' first, got '%s'", got[0].Title)
		}
		if !got[0].Uploaded {
			t.Error("Expected 'Alpha' to carry the uploaded flag")
		}
	})

	t.Run("Filter By Type", func(t *testing.T) {
		got, err := s.ListMedia(user.ID, store.MediaListOptions{MediaType: models.MediaTypeAnime})
		if err != nil {
			t.Fatalf("ListMedia failed: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Delta Anime" {
			t.Fatalf("Expected only the anime item, got %+v", got)
		}
	})

	t.Run("Filter By Uploaded", func(t *testing.T) {
		uploaded := true
		got, err := s.ListMedia(user.ID, store.MediaListOptions{Uploaded: &uploaded})
		if err != nil {
			t.Fatalf("ListMedia failed: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Alpha" {
			t.Fatalf("Expected only the uploaded item, got %d items", len(got))
		}

		pending := false
		got, _ = s.ListMedia(user.ID, store.MediaListOptions{Uploaded: &pending})
		if len(got) != 3 {
			t.Fatalf("Expected 3 pending items, got %d", len(got))
		}
	})

	t.Run("Search By Title Substring", func(t *testing.T) {
		got, err := s.ListMedia(user.ID, store.MediaListOptions{Search: "gamma"})
		if err != nil {
			t.Fatalf("ListMedia failed: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Gamma Show" {
			t.Fatalf("Expected case-insensitive match on 'Gamma Show', got %+v", got)
		}
	})

	t.Run("Other Users See Nothing", func(t *testing.T) {
		other := createTestUser(t, s, "listuser2")
		got, err := s.ListMedia(other.ID, store.MediaListOptions{})
		if err != nil {
			t.Fatalf("ListMedia failed: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("Expected empty list for other user, got %d items", len(got))
		}
	})
}

func TestMediaStore_Stats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createTestUser(t, s, "statsuser")

	s.InsertMediaItem(testMediaItem(user.ID, 1, models.MediaTypeMovie, "A"))
	s.InsertMediaItem(testMediaItem(user.ID, 2, models.MediaTypeMovie, "B"))
	s.InsertMediaItem(testMediaItem(user.ID, 3, models.MediaTypeDocumentary, "C"))

	item := testMediaItem(user.ID, 4, models.MediaTypeSeries, "D")
	s.InsertMediaItem(item)
	s.ToggleUploadMark(user.ID, item.ID)

	stats, err := s.GetMediaStats(user.ID)
	if err != nil {
		t.Fatalf("GetMediaStats failed: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("Expected total 4, got %d", stats.Total)
	}
	if stats.Uploaded != 1 || stats.Pending != 3 {
		t.Errorf("Expected 1 uploaded / 3 pending, got %d / %d", stats.Uploaded, stats.Pending)
	}
	if stats.ByType["movie"] != 2 {
		t.Errorf("Expected 2 movies, got %d", stats.ByType["movie"])
	}
}
