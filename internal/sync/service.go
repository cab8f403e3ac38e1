// Package sync runs the periodic trending refresh: a scheduled job that
// pulls the catalog's weekly trending lists and imports what users do
// not already have.
package sync

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/avelardo/cinetrack/internal/catalog"
	"github.com/avelardo/cinetrack/internal/importer"
	"github.com/avelardo/cinetrack/internal/models"
	"github.com/avelardo/cinetrack/internal/store"
)

// TrendingSource is the slice of the catalog client the sync needs.
type TrendingSource interface {
	Trending(ctx context.Context, phase models.Phase) (*catalog.Page, error)
}

// Service owns the trending sync schedule. The actual inserts go
// through the importer's batch path so trending items obey the same
// classification and dedup rules as bulk-imported ones.
type Service struct {
	st       *store.Store
	exec     *importer.Executor
	source   TrendingSource
	interval int
}

// New creates a Service that refreshes every interval minutes.
func New(st *store.Store, exec *importer.Executor, source TrendingSource, interval int) *Service {
	return &Service{st: st, exec: exec, source: source, interval: interval}
}

// Start schedules the periodic refresh. An interval of 0 disables it.
func (s *Service) Start() {
	if s.interval == 0 {
		log.Println("Trending sync interval is 0, scheduled sync is disabled.")
		return
	}

	sched := gocron.NewScheduler(time.UTC)
	sched.SingletonModeAll()

	log.Printf("Scheduling trending sync to run every %d minutes.", s.interval)
	_, err := sched.Every(s.interval).Minutes().Do(func() {
		if err := s.RunOnce(context.Background()); err != nil {
			log.Printf("Trending sync failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling trending sync: %v", err)
		return
	}
	sched.StartAsync()
}

// RunOnce performs one full trending refresh across all users. The
// trending pages are fetched once; a failure for one user does not stop
// the others.
func (s *Service) RunOnce(ctx context.Context) error {
	pages := make(map[models.Phase][]catalog.Item)
	for _, phase := range []models.Phase{models.PhaseMovies, models.PhaseSeries} {
		p, err := s.source.Trending(ctx, phase)
		if err != nil {
			return err
		}
		pages[phase] = p.Items
	}

	users, err := s.st.ListUsers()
	if err != nil {
		return err
	}

	var imported, skipped int
	for _, u := range users {
		ok := true
		for phase, items := range pages {
			imp, skp, err := s.exec.ImportItems(ctx, u.ID, phase, items)
			if err != nil {
				log.Printf("Trending sync: import failed for user %d (%s): %v", u.ID, phase, err)
				ok = false
				continue
			}
			imported += imp
			skipped += skp
		}
		if ok {
			if err := s.st.TouchLastSyncAt(u.ID); err != nil {
				log.Printf("Trending sync: failed to record sync time for user %d: %v", u.ID, err)
			}
		}
	}
	log.Printf("Trending sync finished: %d imported, %d already present across %d users.",
		imported, skipped, len(users))
	return nil
}
