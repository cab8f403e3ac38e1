package importer_test

import (
	"errors"
	"testing"
	"time"

	"github.com/avelardo/cinetrack/internal/catalog"
	"github.com/avelardo/cinetrack/internal/importer"
	"github.com/avelardo/cinetrack/internal/models"
	"github.com/avelardo/cinetrack/internal/store"
	"github.com/avelardo/cinetrack/internal/testutil"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for: %s", msg)
}

func TestRunner_RunsToCompletion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createUser(t, s, "runnertc")

	fake := newFakeCatalog()
	fake.totals[models.PhaseMovies] = 2
	fake.totals[models.PhaseSeries] = 1
	fake.setPage(models.PhaseMovies, catalog.SortPopular, 1, []catalog.Item{movieItem(1, "M1", 18)})
	fake.setPage(models.PhaseMovies, catalog.SortPopular, 2, []catalog.Item{movieItem(2, "M2", 18)})
	fake.setPage(models.PhaseSeries, catalog.SortPopular, 1, []catalog.Item{seriesItem(3, "S1", 18)})

	exec := importer.NewExecutor(s, fake, 500)
	runner := importer.NewRunner(user.ID, exec, s, nil, 5*time.Millisecond)

	if err := runner.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		return runner.State() == importer.StateCompleted
	}, "runner to complete both phases")

	p, _ := s.GetOrCreateProgress(user.ID)
	if p.CompletedAt == nil {
		t.Error("Expected completed_at set after full run")
	}
	if p.IsImporting {
		t.Error("Expected the import lock released after completion")
	}
	if p.MoviesImported != 2 || p.SeriesImported != 1 {
		t.Errorf("Expected 2 movies and 1 series imported, got %d / %d", p.MoviesImported, p.SeriesImported)
	}

	t.Run("Start After Completion Is Refused", func(t *testing.T) {
		if err := runner.Start(); !errors.Is(err, importer.ErrCompleted) {
			t.Fatalf("Expected ErrCompleted, got %v", err)
		}
	})

	t.Run("Reset Allows A Fresh Run", func(t *testing.T) {
		if err := runner.Reset(); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		if runner.State() != importer.StateIdle {
			t.Errorf("Expected idle after reset, got %s", runner.State())
		}
		if err := runner.Start(); err != nil {
			t.Fatalf("Start after reset failed: %v", err)
		}
		waitFor(t, 5*time.Second, func() bool {
			return runner.State() == importer.StateCompleted
		}, "second run to complete")

		// The items were already in the library, so this run skips them.
		p, _ := s.GetOrCreateProgress(user.ID)
		if p.MoviesImported != 0 || p.MoviesSkipped != 2 {
			t.Errorf("Expected rerun to skip existing movies, got imported %d skipped %d",
				p.MoviesImported, p.MoviesSkipped)
		}
	})
}

func TestRunner_StartReturnsPromptly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createUser(t, s, "runnerprompt")

	fake := newFakeCatalog()
	fake.setPage(models.PhaseMovies, catalog.SortPopular, 1, []catalog.Item{movieItem(1, "M1", 18)})

	exec := importer.NewExecutor(s, fake, 500)
	runner := importer.NewRunner(user.ID, exec, s, nil, time.Second)

	// Start fires the first step itself; it must hand control back
	// rather than block on that step.
	done := make(chan error, 1)
	go func() { done <- runner.Start() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return, the immediate first step blocked it")
	}

	if got := runner.State(); got != importer.StateRunning {
		t.Errorf("Expected running right after start, got %s", got)
	}
	// The immediate step still fires without waiting for the interval.
	waitFor(t, 500*time.Millisecond, func() bool {
		p, _ := s.GetOrCreateProgress(user.ID)
		return p.Phase == models.PhaseSeries
	}, "the immediate first step to fold")
	runner.Pause()
}

func TestRunner_StartGuards(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createUser(t, s, "runnersg")

	fake := newFakeCatalog()
	fake.delay = 50 * time.Millisecond
	fake.setPage(models.PhaseMovies, catalog.SortPopular, 1, []catalog.Item{movieItem(1, "M1", 18)})

	exec := importer.NewExecutor(s, fake, 500)
	runner := importer.NewRunner(user.ID, exec, s, nil, 10*time.Millisecond)

	t.Run("Second Start Is Refused", func(t *testing.T) {
		if err := runner.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := runner.Start(); !errors.Is(err, importer.ErrAlreadyRunning) {
			t.Fatalf("Expected ErrAlreadyRunning, got %v", err)
		}
		if err := runner.Pause(); err != nil {
			t.Fatalf("Pause failed: %v", err)
		}
		// Wait for the in-flight step to fold and the lock to settle.
		waitFor(t, 2*time.Second, func() bool {
			p, _ := s.GetOrCreateProgress(user.ID)
			return p.Phase == models.PhaseSeries && !p.IsImporting
		}, "in-flight step to fold after pause")
	})

	t.Run("Foreign Lock Is Respected", func(t *testing.T) {
		// Simulate another session holding the advisory lock.
		if err := s.SetImporting(user.ID, true); err != nil {
			t.Fatalf("SetImporting failed: %v", err)
		}
		if err := runner.Start(); !errors.Is(err, importer.ErrLocked) {
			t.Fatalf("Expected ErrLocked, got %v", err)
		}

		// Unlock clears the stale lock and start succeeds.
		if err := runner.Unlock(); err != nil {
			t.Fatalf("Unlock failed: %v", err)
		}
		if err := runner.Start(); err != nil {
			t.Fatalf("Start after unlock failed: %v", err)
		}
		runner.Pause()
	})
}

func TestRunner_SlowStepsNeverOverlap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createUser(t, s, "runnerslow")

	fake := newFakeCatalog()
	// Each step takes ~10 tick periods; overlapping ticks must no-op.
	fake.delay = 100 * time.Millisecond
	fake.totals[models.PhaseMovies] = 50
	fake.setPage(models.PhaseMovies, catalog.SortPopular, 1, []catalog.Item{movieItem(1, "M1", 18)})

	exec := importer.NewExecutor(s, fake, 500)
	runner := importer.NewRunner(user.ID, exec, s, nil, 10*time.Millisecond)

	if err := runner.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if err := runner.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	// Give an in-flight step time to finish and fold its result.
	waitFor(t, 2*time.Second, func() bool {
		p, _ := s.GetOrCreateProgress(user.ID)
		return p.MoviesPage > 1
	}, "in-flight step result to be folded after pause")

	// One step fetches genres once. With a 100ms step and a 10ms tick,
	// more than 3 steps in 150ms means ticks overlapped.
	if calls := fake.genreCalls.Load(); calls > 3 {
		t.Errorf("Expected at most 3 steps in the window, saw %d", calls)
	}

	p, _ := s.GetOrCreateProgress(user.ID)
	if p.IsImporting {
		t.Error("Expected the import lock released after pause")
	}
}

func TestRunner_StepFailureParksThePipeline(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createUser(t, s, "runnerfail")

	fake := newFakeCatalog()
	fake.discoverErr = errors.New("catalog down")

	exec := importer.NewExecutor(s, fake, 500)
	runner := importer.NewRunner(user.ID, exec, s, nil, 5*time.Millisecond)

	if err := runner.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return runner.State() == importer.StatePaused
	}, "runner to park itself after the failed step")

	p, _ := s.GetOrCreateProgress(user.ID)
	if p.IsImporting {
		t.Error("Expected the import lock released after failure")
	}
	if p.MoviesPage != 1 {
		t.Errorf("Checkpoint must not advance on failure, got page %d", p.MoviesPage)
	}

	snap, err := runner.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.LastError == "" {
		t.Error("Expected the snapshot to surface the step error")
	}

	// Resume works once the catalog recovers.
	fake.mu.Lock()
	fake.discoverErr = nil
	fake.mu.Unlock()
	fake.setPage(models.PhaseMovies, catalog.SortPopular, 1, []catalog.Item{movieItem(1, "M1", 18)})
	fake.setPage(models.PhaseSeries, catalog.SortPopular, 1, []catalog.Item{seriesItem(2, "S1", 18)})
	if err := runner.Start(); err != nil {
		t.Fatalf("Resume after failure failed: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		return runner.State() == importer.StateCompleted
	}, "runner to complete after resume")
}

func TestRunner_SnapshotPercentages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	user := createUser(t, s, "runnersnap")

	s.GetOrCreateProgress(user.ID)
	s.ApplyStepResult(user.ID, store.StepResultDelta{
		Phase:      models.PhaseMovies,
		Imported:   20,
		NextPage:   6,
		TotalPages: 10,
		NextPhase:  models.PhaseMovies,
	})

	exec := importer.NewExecutor(s, newFakeCatalog(), 500)
	runner := importer.NewRunner(user.ID, exec, s, nil, time.Second)

	snap, err := runner.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.MoviesPercent != 50 {
		t.Errorf("Expected 50%% movies progress (5 of 10 pages done), got %.1f", snap.MoviesPercent)
	}
	if snap.SeriesPercent != 0 {
		t.Errorf("Expected 0%% series progress, got %.1f", snap.SeriesPercent)
	}
	if snap.TotalImported != 20 {
		t.Errorf("Expected 20 total imported, got %d", snap.TotalImported)
	}
	if snap.State != importer.StatePaused {
		t.Errorf("Expected a partially-walked checkpoint to surface as paused, got %s", snap.State)
	}
}
