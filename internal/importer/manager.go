package importer

import (
	"sync"
	"time"

	"github.com/avelardo/cinetrack/internal/store"
)

// Manager hands out the per-user runners. Runners are created lazily on
// first use and live for the life of the process.
type Manager struct {
	exec     *Executor
	st       *store.Store
	hub      Broadcaster
	interval time.Duration

	mu      sync.Mutex
	runners map[int64]*Runner
}

// NewManager creates a Manager. interval is the tick period runners use.
func NewManager(exec *Executor, st *store.Store, hub Broadcaster, interval time.Duration) *Manager {
	return &Manager{
		exec:     exec,
		st:       st,
		hub:      hub,
		interval: interval,
		runners:  make(map[int64]*Runner),
	}
}

// Runner returns the user's runner, creating it on first request.
func (m *Manager) Runner(userID int64) *Runner {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runners[userID]
	if !ok {
		r = NewRunner(userID, m.exec, m.st, m.hub, m.interval)
		m.runners[userID] = r
	}
	return r
}

// PauseAll pauses every running runner. Called on shutdown so the
// advisory locks are released and the checkpoints resume cleanly on the
// next boot.
func (m *Manager) PauseAll() {
	m.mu.Lock()
	runners := make([]*Runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	m.mu.Unlock()

	for _, r := range runners {
		if r.State() == StateRunning {
			_ = r.Pause()
		}
	}
}
