package catalog

import (
	"time"

	"github.com/avelardo/cinetrack/internal/models"
)

// Well-known genre ids on the catalog API, used by the importer's
// classification heuristic.
const (
	GenreAnimation   = 16
	GenreDocumentary = 99
)

// Sort selects one of the catalog's list orderings. The orderings
// overlap heavily in content, which is why the importer merges several
// of them per page.
type Sort string

const (
	SortPopular    Sort = "popular"
	SortTopRated   Sort = "top_rated"
	SortNowPlaying Sort = "now_playing"
	SortOnTheAir   Sort = "on_the_air"
)

// Sorts returns the list orderings queried for a phase.
func Sorts(phase models.Phase) []Sort {
	if phase == models.PhaseSeries {
		return []Sort{SortPopular, SortTopRated, SortOnTheAir}
	}
	return []Sort{SortPopular, SortTopRated, SortNowPlaying}
}

// CollectionRef is the catalog's collection descriptor attached to
// movies that belong to a franchise.
type CollectionRef struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
}

// Item is one raw catalog entry as returned by the list endpoints.
// Movies carry title/release_date, series carry name/first_air_date.
type Item struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Name         string         `json:"name"`
	PosterPath   string         `json:"poster_path"`
	Overview     string         `json:"overview"`
	GenreIDs     []int          `json:"genre_ids"`
	Popularity   float64        `json:"popularity"`
	ReleaseDate  string         `json:"release_date"`
	FirstAirDate string         `json:"first_air_date"`
	Collection   *CollectionRef `json:"belongs_to_collection,omitempty"`
}

// DisplayTitle returns the item's title regardless of content type.
func (it *Item) DisplayTitle() string {
	if it.Title != "" {
		return it.Title
	}
	return it.Name
}

// Released parses the item's release or first-air date. It returns nil
// when the catalog sent no date or an unparsable one.
func (it *Item) Released() *time.Time {
	raw := it.ReleaseDate
	if raw == "" {
		raw = it.FirstAirDate
	}
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}

// HasGenre reports whether the item carries the given catalog genre id.
func (it *Item) HasGenre(id int) bool {
	for _, g := range it.GenreIDs {
		if g == id {
			return true
		}
	}
	return false
}

// Page is one page of catalog results.
type Page struct {
	Page         int    `json:"page"`
	Items        []Item `json:"results"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
}
