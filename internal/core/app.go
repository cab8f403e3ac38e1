package core

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/avelardo/cinetrack/internal/config"
	"github.com/avelardo/cinetrack/internal/db"
	"github.com/avelardo/cinetrack/internal/websocket"
)

// App holds the core components shared across the server's subsystems.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Hub     *websocket.Hub
	Version string
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, and running migrations.
func New(version string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	log.Println("Core application setup complete.")
	return &App{
		Config:  cfg,
		DB:      database,
		Hub:     hub,
		Version: version,
	}, nil
}

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
