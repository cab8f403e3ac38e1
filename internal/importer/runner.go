package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avelardo/cinetrack/internal/models"
	"github.com/avelardo/cinetrack/internal/store"
)

// State is the runner's lifecycle position.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

var (
	// ErrAlreadyRunning is returned by Start when an import loop is
	// already live for the user in this process.
	ErrAlreadyRunning = errors.New("import is already running")
	// ErrCompleted is returned by Start once both phases have finished;
	// the progress must be reset before another full run.
	ErrCompleted = errors.New("import already completed, reset progress to run again")
	// ErrLocked is returned when the persisted progress row says another
	// session holds the import.
	ErrLocked = errors.New("import is running in another session")
)

// stepTimeout bounds a single step so a stalled catalog request cannot
// wedge the runner's in-flight slot forever.
const stepTimeout = 15 * time.Second

// Broadcaster pushes progress frames to connected clients.
type Broadcaster interface {
	BroadcastJSON(v interface{})
}

// Runner drives the import loop for one user: a ticker fires steps, an
// in-flight flag guarantees at most one step executes at a time, and
// every step's outcome is folded into the persisted checkpoint before
// the next one starts. All durable state lives in the store; the runner
// itself can be thrown away and rebuilt at any point.
type Runner struct {
	userID   int64
	exec     *Executor
	st       *store.Store
	hub      Broadcaster
	interval time.Duration

	mu      sync.Mutex
	state   State
	ticker  *time.Ticker
	stop    chan struct{}
	lastErr error

	inFlight atomic.Bool
}

// NewRunner creates a runner for one user, deriving the starting state
// from the persisted progress row.
func NewRunner(userID int64, exec *Executor, st *store.Store, hub Broadcaster, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	r := &Runner{
		userID:   userID,
		exec:     exec,
		st:       st,
		hub:      hub,
		interval: interval,
		state:    StateIdle,
	}
	if p, err := st.GetOrCreateProgress(userID); err == nil {
		switch {
		case p.CompletedAt != nil:
			r.state = StateCompleted
		case p.MoviesPage > 1 || p.Phase == models.PhaseSeries:
			r.state = StatePaused
		}
	}
	return r
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start begins (or resumes) the import loop. It refuses to start when a
// different session already holds the advisory lock, and takes the lock
// itself before the first step fires.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateRunning:
		return ErrAlreadyRunning
	case StateCompleted:
		return ErrCompleted
	}

	p, err := r.st.GetOrCreateProgress(r.userID)
	if err != nil {
		return err
	}
	if p.CompletedAt != nil {
		r.state = StateCompleted
		return ErrCompleted
	}
	if p.IsImporting {
		return ErrLocked
	}
	if err := r.st.SetImporting(r.userID, true); err != nil {
		return err
	}

	r.state = StateRunning
	r.lastErr = nil
	r.stop = make(chan struct{})
	r.ticker = time.NewTicker(r.interval)
	go r.loop(r.stop, r.ticker)

	log.Printf("Import: runner started for user %d (phase %s, page %d)", r.userID, p.Phase, p.Page(p.Phase))
	r.broadcast(p, "running", "Import started", false)

	// First step fires immediately rather than one interval out. It
	// runs on its own goroutine so its state check waits for the mutex
	// Start still holds.
	go r.tick()
	return nil
}

// Pause stops the loop. A step already in flight finishes on its own
// and its result is still folded into the checkpoint.
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return fmt.Errorf("import is not running")
	}
	r.stopLocked()
	r.state = StatePaused
	if err := r.st.SetImporting(r.userID, false); err != nil {
		return err
	}
	log.Printf("Import: runner paused for user %d", r.userID)
	if p, err := r.st.GetOrCreateProgress(r.userID); err == nil {
		r.broadcast(p, "paused", "Import paused", false)
	}
	return nil
}

// Reset stops any loop and wipes the user's checkpoint back to the
// initial state. Imported media items are left alone.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRunning {
		r.stopLocked()
	}
	if err := r.st.ResetProgress(r.userID); err != nil {
		return err
	}
	r.state = StateIdle
	r.lastErr = nil
	log.Printf("Import: progress reset for user %d", r.userID)
	if p, err := r.st.GetOrCreateProgress(r.userID); err == nil {
		r.broadcast(p, "idle", "Import progress reset", false)
	}
	return nil
}

// Unlock clears a stale advisory lock left behind by a session that
// died mid-run. It refuses while this runner itself is running.
func (r *Runner) Unlock() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRunning {
		return ErrAlreadyRunning
	}
	return r.st.SetImporting(r.userID, false)
}

func (r *Runner) loop(stop chan struct{}, ticker *time.Ticker) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// tick launches one step unless one is still in flight. The
// compare-and-swap makes an overlapping tick a silent no-op instead of
// a queued or concurrent step.
func (r *Runner) tick() {
	if r.State() != StateRunning {
		return
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer r.inFlight.Store(false)
		r.step()
	}()
}

func (r *Runner) step() {
	p, err := r.st.GetOrCreateProgress(r.userID)
	if err != nil {
		r.fail(err)
		return
	}
	phase := p.Phase
	page := p.Page(phase)

	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	defer cancel()

	res, err := r.exec.RunStep(ctx, r.userID, phase, page)
	if err != nil {
		r.fail(err)
		return
	}

	cur, err := r.st.GetOrCreateProgress(r.userID)
	if err != nil {
		r.fail(err)
		return
	}

	if res.IsComplete {
		r.mu.Lock()
		if r.state == StateRunning {
			r.stopLocked()
		}
		r.state = StateCompleted
		r.mu.Unlock()
		log.Printf("Import: completed for user %d (%d movies, %d series imported)",
			r.userID, cur.MoviesImported, cur.SeriesImported)
		r.broadcast(cur, "completed", "Import completed", true)
		return
	}

	// Folding a step re-asserts the lock; if we were paused while this
	// step was in flight, release it again.
	if r.State() != StateRunning {
		if err := r.st.SetImporting(r.userID, false); err != nil {
			log.Printf("Import: failed to release import lock for user %d: %v", r.userID, err)
		}
		return
	}

	msg := fmt.Sprintf("Imported page %d/%d of %s (+%d new, %d skipped)",
		res.Page, res.TotalPages, res.Phase, res.Imported, res.Skipped)
	r.broadcast(cur, "running", msg, false)
}

// fail parks the runner in Paused so the user can resume once the
// catalog recovers; the checkpoint is untouched by the failed step.
func (r *Runner) fail(err error) {
	log.Printf("Import: step failed for user %d: %v", r.userID, err)
	r.mu.Lock()
	if r.state == StateRunning {
		r.stopLocked()
		r.state = StatePaused
	}
	r.lastErr = err
	r.mu.Unlock()
	if dbErr := r.st.SetImporting(r.userID, false); dbErr != nil {
		log.Printf("Import: failed to release import lock for user %d: %v", r.userID, dbErr)
	}
	if p, pErr := r.st.GetOrCreateProgress(r.userID); pErr == nil {
		r.broadcast(p, "failed", fmt.Sprintf("Import paused after error: %v", err), false)
	}
}

// stopLocked tears down the ticker and loop. Callers hold r.mu.
func (r *Runner) stopLocked() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

func (r *Runner) broadcast(p *models.ImportProgress, status, message string, done bool) {
	if r.hub == nil {
		return
	}
	r.hub.BroadcastJSON(models.ProgressUpdate{
		JobID:    fmt.Sprintf("import-%d", r.userID),
		UserID:   r.userID,
		Phase:    p.Phase,
		Message:  message,
		Progress: phasePercent(p, p.Phase),
		Status:   status,
		Done:     done,
	})
}

// Snapshot is the progress view the API serves: the persisted
// checkpoint plus the runner's in-memory state and derived percentages.
type Snapshot struct {
	models.ImportProgress
	State         State   `json:"state"`
	MoviesPercent float64 `json:"movies_percent"`
	SeriesPercent float64 `json:"series_percent"`
	TotalImported int     `json:"total_imported"`
	TotalSkipped  int     `json:"total_skipped"`
	Locked        bool    `json:"locked"`
	LastError     string  `json:"last_error,omitempty"`
}

// Snapshot assembles the current progress view for the user.
func (r *Runner) Snapshot() (*Snapshot, error) {
	p, err := r.st.GetOrCreateProgress(r.userID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	state := r.state
	lastErr := r.lastErr
	r.mu.Unlock()

	if p.CompletedAt != nil && state != StateCompleted {
		// Another session may have finished the walk for us.
		state = StateCompleted
	}

	s := &Snapshot{
		ImportProgress: *p,
		State:          state,
		MoviesPercent:  phasePercent(p, models.PhaseMovies),
		SeriesPercent:  phasePercent(p, models.PhaseSeries),
		TotalImported:  p.MoviesImported + p.SeriesImported,
		TotalSkipped:   p.MoviesSkipped + p.SeriesSkipped,
		Locked:         p.IsImporting && state != StateRunning,
	}
	if lastErr != nil {
		s.LastError = lastErr.Error()
	}
	return s, nil
}

// phasePercent reports how far a phase has paged, as a percentage. A
// phase with no total reported yet is 0; a finished phase caps at 100.
func phasePercent(p *models.ImportProgress, phase models.Phase) float64 {
	total := p.TotalPages(phase)
	if total <= 0 {
		return 0
	}
	done := p.Page(phase) - 1
	if done < 0 {
		done = 0
	}
	pct := float64(done) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
