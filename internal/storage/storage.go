// Package storage persists highscores and level-completion barrier results.
// SQLite (pure-Go modernc.org/sqlite driver) is the default; PostgreSQL is
// available for shared deployments.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/tiltmaze/internal/multiplayer"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultHighscore is stored for players seen for the first time.
const DefaultHighscore = 1000

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// Highscore is a player's best run: the fewest deaths to finish the game.
type Highscore struct {
	Player    string
	Deaths    int
	UpdatedAt time.Time
}

// LevelCompletion is one released barrier.
type LevelCompletion struct {
	ID           int64
	GroupID      string
	Level        int
	Players      []string
	AllCompleted bool
	Reason       string
	Waited       time.Duration
	CreatedAt    time.Time
}

// Store is the persistence contract shared by the SQLite and PostgreSQL backends.
type Store interface {
	// Highscore returns the stored value and whether the player is known.
	Highscore(ctx context.Context, player string) (int, bool, error)
	// EnsureHighscore returns the stored value, inserting def first if the
	// player is unknown.
	EnsureHighscore(ctx context.Context, player string, def int) (int, error)
	// SetHighscore stores deaths if the player is unknown or deaths is lower
	// than the stored value. It reports whether the row changed.
	SetHighscore(ctx context.Context, player string, deaths int) (bool, error)
	// TopHighscores lists the best players, fewest deaths first.
	TopHighscores(ctx context.Context, limit int) ([]Highscore, error)
	// SaveLevelCompletion records a released barrier and returns its ID.
	SaveLevelCompletion(ctx context.Context, rec LevelCompletion) (int64, error)
	// RecentLevelCompletions lists the newest barrier results.
	RecentLevelCompletions(ctx context.Context, limit int) ([]LevelCompletion, error)
	Close() error
}

// Open connects to the configured backend. For sqlite dsn is a file path;
// for postgres it is a connection URL.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// ResultSaver adapts a Store to multiplayer.LevelResultSaver.
type ResultSaver struct {
	Store   Store
	Timeout time.Duration
}

// SaveLevelResult implements multiplayer.LevelResultSaver.
func (r ResultSaver) SaveLevelResult(data multiplayer.LevelResultData) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := r.Store.SaveLevelCompletion(ctx, LevelCompletion{
		GroupID:      data.GroupID,
		Level:        data.Level,
		Players:      data.Players,
		AllCompleted: data.AllCompleted,
		Reason:       data.Reason,
		Waited:       data.Waited,
	})
	return err
}

// Ensure ResultSaver implements LevelResultSaver
var _ multiplayer.LevelResultSaver = ResultSaver{}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
