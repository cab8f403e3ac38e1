package sync_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelardo/cinetrack/internal/catalog"
	"github.com/avelardo/cinetrack/internal/importer"
	"github.com/avelardo/cinetrack/internal/models"
	"github.com/avelardo/cinetrack/internal/store"
	syncsvc "github.com/avelardo/cinetrack/internal/sync"
	"github.com/avelardo/cinetrack/internal/testutil"
)

// fakeTrending serves fixed trending lists and a genre table.
type fakeTrending struct {
	byPhase map[models.Phase][]catalog.Item
}

func (f *fakeTrending) Trending(ctx context.Context, phase models.Phase) (*catalog.Page, error) {
	return &catalog.Page{Page: 1, Items: f.byPhase[phase], TotalPages: 1}, nil
}

func (f *fakeTrending) Discover(ctx context.Context, phase models.Phase, sort catalog.Sort, page int) (*catalog.Page, error) {
	return &catalog.Page{Page: page, TotalPages: 1}, nil
}

func (f *fakeTrending) Genres(ctx context.Context, phase models.Phase) (map[int]string, error) {
	return map[int]string{16: "Animation", 18: "Drama", 99: "Documentary"}, nil
}

func TestService_RunOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	alice, err := s.CreateUser("alice", "hash", "user")
	require.NoError(t, err)
	bob, err := s.CreateUser("bob", "hash", "user")
	require.NoError(t, err)

	// Alice already has one of the trending movies.
	existing := &models.MediaItem{
		UserID:     alice.ID,
		ExternalID: 100,
		MediaType:  models.MediaTypeMovie,
		Title:      "Known Movie",
		Genres:     []string{"Drama"},
	}
	require.NoError(t, s.InsertMediaItem(existing))

	fake := &fakeTrending{byPhase: map[models.Phase][]catalog.Item{
		models.PhaseMovies: {
			{ID: 100, Title: "Known Movie", GenreIDs: []int{18}},
			{ID: 101, Title: "New Movie", GenreIDs: []int{18}},
		},
		models.PhaseSeries: {
			{ID: 200, Name: "Hot Show", GenreIDs: []int{18}},
		},
	}}

	exec := importer.NewExecutor(s, fake, 500)
	svc := syncsvc.New(s, exec, fake, 60)

	require.NoError(t, svc.RunOnce(context.Background()))

	t.Run("Existing Items Are Skipped", func(t *testing.T) {
		items, err := s.ListMedia(alice.ID, store.MediaListOptions{})
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("All Users Receive Trending Items", func(t *testing.T) {
		items, err := s.ListMedia(bob.ID, store.MediaListOptions{})
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("Series Classified By Phase", func(t *testing.T) {
		var mediaType models.MediaType
		err := db.QueryRow(
			"SELECT media_type FROM media_items WHERE user_id = ? AND external_id = 200", bob.ID,
		).Scan(&mediaType)
		require.NoError(t, err)
		assert.Equal(t, models.MediaTypeSeries, mediaType)
	})

	t.Run("Sync Timestamp Recorded Per User", func(t *testing.T) {
		for _, u := range []int64{alice.ID, bob.ID} {
			at, err := s.GetLastSyncAt(u)
			require.NoError(t, err)
			assert.NotNil(t, at, "expected sync timestamp for user %d", u)
		}
	})

	t.Run("Second Run Imports Nothing New", func(t *testing.T) {
		require.NoError(t, svc.RunOnce(context.Background()))
		items, err := s.ListMedia(alice.ID, store.MediaListOptions{})
		require.NoError(t, err)
		assert.Len(t, items, 3, "repeat sync must not grow the library")
	})
}
