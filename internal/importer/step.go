// The import step executor: one page-sized unit of bulk-import work.

package importer

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/avelardo/cinetrack/internal/catalog"
	"github.com/avelardo/cinetrack/internal/models"
	"github.com/avelardo/cinetrack/internal/store"
)

// Catalog is the slice of the catalog client the executor needs.
type Catalog interface {
	Discover(ctx context.Context, phase models.Phase, sort catalog.Sort, page int) (*catalog.Page, error)
	Genres(ctx context.Context, phase models.Phase) (map[int]string, error)
}

// Executor performs individual import steps against the store. It owns
// no loop state; the Runner drives it one page at a time.
type Executor struct {
	st        *store.Store
	catalog   Catalog
	pageLimit int
}

// NewExecutor creates an Executor. pageLimit bounds how far a phase may
// be paged regardless of what the catalog reports.
func NewExecutor(st *store.Store, c Catalog, pageLimit int) *Executor {
	if pageLimit <= 0 {
		pageLimit = 500
	}
	return &Executor{st: st, catalog: c, pageLimit: pageLimit}
}

// StepResult is what one import step produced and where the walk goes
// next.
type StepResult struct {
	Phase            models.Phase `json:"phase"`
	Page             int          `json:"page"`
	Imported         int          `json:"imported"`
	Skipped          int          `json:"skipped"`
	CollectionsAdded int          `json:"collections_added"`
	TotalPages       int          `json:"total_pages"`
	HasMore          bool         `json:"has_more"`
	NextPhase        models.Phase `json:"next_phase"`
	NextPage         int          `json:"next_page"`
	IsComplete       bool         `json:"is_complete"`
}

// RunStep imports one page of one phase for a user: it fetches the
// phase's list orderings in parallel, merges and dedups the candidates,
// inserts the ones not yet in the store and persists the advanced
// checkpoint. A catalog failure aborts the whole step before anything
// is persisted; per-candidate store failures only cost that candidate.
func (e *Executor) RunStep(ctx context.Context, userID int64, phase models.Phase, page int) (*StepResult, error) {
	if page < 1 {
		page = 1
	}

	genres, err := e.catalog.Genres(ctx, phase)
	if err != nil {
		return nil, err
	}

	sorts := catalog.Sorts(phase)
	pages := make([]*catalog.Page, len(sorts))
	g, gctx := errgroup.WithContext(ctx)
	for i, srt := range sorts {
		g.Go(func() error {
			p, err := e.catalog.Discover(gctx, phase, srt, page)
			if err != nil {
				return err
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge the orderings, dropping in-batch duplicates. The orderings
	// overlap on purpose: querying three of them per page increases
	// recall without extra paging.
	seen := make(map[int64]bool)
	var candidates []catalog.Item
	totalPages := 0
	for _, p := range pages {
		if p.TotalPages > totalPages {
			totalPages = p.TotalPages
		}
		for _, it := range p.Items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			candidates = append(candidates, it)
		}
	}
	if totalPages > e.pageLimit {
		totalPages = e.pageLimit
	}

	imported, skipped, collectionsAdded := e.importBatch(userID, phase, candidates, genres)

	res := &StepResult{
		Phase:            phase,
		Page:             page,
		Imported:         imported,
		Skipped:          skipped,
		CollectionsAdded: collectionsAdded,
		TotalPages:       totalPages,
		HasMore:          page < totalPages,
	}
	switch {
	case res.HasMore:
		res.NextPhase = phase
		res.NextPage = page + 1
	case phase == models.PhaseMovies:
		// Movies exhausted, the walk moves on to series.
		res.NextPhase = models.PhaseSeries
		res.NextPage = 1
	default:
		res.NextPhase = models.PhaseSeries
		res.NextPage = page
		res.IsComplete = true
	}

	// The phase's own cursor always records the page just done as
	// finished, capped so it never runs past total+1.
	phasePage := page + 1
	if totalPages > 0 && phasePage > totalPages+1 {
		phasePage = totalPages + 1
	}
	err = e.st.ApplyStepResult(userID, store.StepResultDelta{
		Phase:            phase,
		Imported:         imported,
		Skipped:          skipped,
		CollectionsAdded: collectionsAdded,
		NextPage:         phasePage,
		TotalPages:       totalPages,
		NextPhase:        res.NextPhase,
		Complete:         res.IsComplete,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ImportItems runs the executor's classify/dedup/insert path over an
// arbitrary batch of catalog items. The trending sync shares it so both
// entry points obey the same uniqueness rules.
func (e *Executor) ImportItems(ctx context.Context, userID int64, phase models.Phase, items []catalog.Item) (imported, skipped int, err error) {
	genres, err := e.catalog.Genres(ctx, phase)
	if err != nil {
		return 0, 0, err
	}
	imported, skipped, _ = e.importBatch(userID, phase, items, genres)
	return imported, skipped, nil
}

// importBatch inserts each candidate not already present. A duplicate
// (either the pre-check or a unique-index race) counts as skipped so the
// imported+skipped total stays reconcilable with the candidate count;
// any other per-candidate failure is logged and the candidate dropped.
func (e *Executor) importBatch(userID int64, phase models.Phase, items []catalog.Item, genres map[int]string) (imported, skipped, collectionsAdded int) {
	for _, it := range items {
		mediaType := classify(&it, phase)

		exists, err := e.st.MediaExists(userID, it.ID, mediaType)
		if err != nil {
			log.Printf("Import: existence check failed for item %d: %v", it.ID, err)
			continue
		}
		if exists {
			skipped++
			continue
		}

		var collectionID *int64
		if it.Collection != nil {
			id, created, err := e.st.FindOrCreateCollection(
				userID, it.Collection.ID, it.Collection.Name,
				it.Collection.PosterPath, it.Collection.BackdropPath)
			if err != nil {
				log.Printf("Import: failed to resolve collection %d: %v", it.Collection.ID, err)
			} else {
				collectionID = &id
				if created {
					collectionsAdded++
				}
			}
		}

		item := &models.MediaItem{
			UserID:       userID,
			ExternalID:   it.ID,
			MediaType:    mediaType,
			Title:        it.DisplayTitle(),
			PosterPath:   it.PosterPath,
			Overview:     it.Overview,
			Genres:       genreNames(&it, genres),
			Popularity:   it.Popularity,
			ReleaseDate:  it.Released(),
			CollectionID: collectionID,
		}
		if err := e.st.InsertMediaItem(item); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				// Lost a check-then-insert race against another session.
				skipped++
				continue
			}
			log.Printf("Import: failed to insert item %d (%s): %v", it.ID, item.Title, err)
			continue
		}
		imported++
	}
	return imported, skipped, collectionsAdded
}

// classify assigns the media type once, at import time. Documentary and
// animation genre tags win over the phase default; items are never
// reclassified afterwards.
func classify(it *catalog.Item, phase models.Phase) models.MediaType {
	switch {
	case it.HasGenre(catalog.GenreDocumentary):
		return models.MediaTypeDocumentary
	case it.HasGenre(catalog.GenreAnimation):
		return models.MediaTypeAnime
	case phase == models.PhaseSeries:
		return models.MediaTypeSeries
	default:
		return models.MediaTypeMovie
	}
}

// genreNames resolves an item's genre ids to names, keeping the
// catalog's order and dropping ids the genre list does not know.
func genreNames(it *catalog.Item, genres map[int]string) []string {
	names := make([]string, 0, len(it.GenreIDs))
	for _, id := range it.GenreIDs {
		if name, ok := genres[id]; ok {
			names = append(names, name)
		}
	}
	return names
}
