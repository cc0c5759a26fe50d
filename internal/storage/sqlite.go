package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore manages the SQLite database connection.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// One writer avoids SQLITE_BUSY between the score and barrier servers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS highscores (
			player TEXT PRIMARY KEY,
			deaths INTEGER NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_highscores_deaths ON highscores(deaths ASC);

		CREATE TABLE IF NOT EXISTS level_completions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			players TEXT NOT NULL,
			all_completed INTEGER NOT NULL,
			reason TEXT NOT NULL,
			waited_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_level_completions_group ON level_completions(group_id, level);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Highscore returns the stored value for player.
func (s *SQLiteStore) Highscore(ctx context.Context, player string) (int, bool, error) {
	var deaths int
	err := s.db.QueryRowContext(ctx,
		"SELECT deaths FROM highscores WHERE player = ?", player,
	).Scan(&deaths)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("storage: cannot query highscore: %w", err)
	}
	return deaths, true, nil
}

// EnsureHighscore returns the stored value, inserting def for new players.
func (s *SQLiteStore) EnsureHighscore(ctx context.Context, player string, def int) (int, error) {
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO highscores (player, deaths) VALUES (?, ?) ON CONFLICT(player) DO NOTHING",
		player, def,
	); err != nil {
		return 0, fmt.Errorf("storage: cannot insert default highscore: %w", err)
	}
	deaths, _, err := s.Highscore(ctx, player)
	return deaths, err
}

// SetHighscore keeps the lower of the stored and the new value.
func (s *SQLiteStore) SetHighscore(ctx context.Context, player string, deaths int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO highscores (player, deaths) VALUES (?, ?)
		 ON CONFLICT(player) DO UPDATE
		 SET deaths = excluded.deaths, updated_at = CURRENT_TIMESTAMP
		 WHERE excluded.deaths < highscores.deaths`,
		player, deaths,
	)
	if err != nil {
		return false, fmt.Errorf("storage: cannot save highscore: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: cannot get affected rows: %w", err)
	}
	return n > 0, nil
}

// TopHighscores retrieves the best players, fewest deaths first.
func (s *SQLiteStore) TopHighscores(ctx context.Context, limit int) ([]Highscore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player, deaths, updated_at
		 FROM highscores
		 ORDER BY deaths ASC, player ASC
		 LIMIT ?`,
		clampLimit(limit, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query highscores: %w", err)
	}
	defer rows.Close()

	var entries []Highscore
	for rows.Next() {
		var e Highscore
		var updatedAt any
		if err := rows.Scan(&e.Player, &e.Deaths, &updatedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.UpdatedAt = parseTimestamp(updatedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// SaveLevelCompletion records a released barrier.
func (s *SQLiteStore) SaveLevelCompletion(ctx context.Context, rec LevelCompletion) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO level_completions
		 (group_id, level, players, all_completed, reason, waited_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.GroupID,
		rec.Level,
		strings.Join(rec.Players, ","),
		rec.AllCompleted,
		rec.Reason,
		rec.Waited.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save level completion: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// RecentLevelCompletions retrieves the most recent barrier results.
func (s *SQLiteStore) RecentLevelCompletions(ctx context.Context, limit int) ([]LevelCompletion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, level, players, all_completed, reason, waited_ms, created_at
		 FROM level_completions
		 ORDER BY id DESC
		 LIMIT ?`,
		clampLimit(limit, 20),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query level completions: %w", err)
	}
	defer rows.Close()

	var results []LevelCompletion
	for rows.Next() {
		var rec LevelCompletion
		var players string
		var waitedMS int64
		var createdAt any
		if err := rows.Scan(
			&rec.ID,
			&rec.GroupID,
			&rec.Level,
			&players,
			&rec.AllCompleted,
			&rec.Reason,
			&waitedMS,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		rec.Players = splitPlayers(players)
		rec.Waited = time.Duration(waitedMS) * time.Millisecond
		rec.CreatedAt = parseTimestamp(createdAt)
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

// parseTimestamp handles both time.Time and the SQLite text form.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func splitPlayers(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
