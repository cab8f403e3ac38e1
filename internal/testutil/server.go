// Shared test server setup, which simplifies all API tests.

package testutil

import (
	"testing"
	"time"

	"github.com/avelardo/cinetrack/internal/api"
	"github.com/avelardo/cinetrack/internal/config"
	"github.com/avelardo/cinetrack/internal/core"
	"github.com/avelardo/cinetrack/internal/importer"
	"github.com/avelardo/cinetrack/internal/store"
	"github.com/avelardo/cinetrack/internal/websocket"
)

// SetupTestApp builds a core.App backed by an in-memory database.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	database := SetupTestDB(t)

	cfg := &config.Config{}
	cfg.Catalog.APIKey = "test-key"
	cfg.Catalog.PageLimit = 500
	cfg.Import.TickSeconds = 1

	hub := websocket.NewHub()
	go hub.Run()

	return &core.App{
		Config:  cfg,
		DB:      database,
		Hub:     hub,
		Version: "test",
	}
}

// SetupTestServer builds an API server wired to an in-memory database
// and the given catalog client (nil is fine for tests that never start
// an import).
func SetupTestServer(t *testing.T, cat importer.Catalog) (*api.Server, *core.App) {
	t.Helper()
	app := SetupTestApp(t)
	st := store.New(app.DB)
	exec := importer.NewExecutor(st, cat, app.Config.Catalog.PageLimit)
	manager := importer.NewManager(exec, st, app.Hub, 10*time.Millisecond)
	return api.NewServer(app, manager), app
}
