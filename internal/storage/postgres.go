package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS highscores (
    player TEXT PRIMARY KEY,
    deaths INTEGER NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_highscores_deaths ON highscores(deaths ASC);

CREATE TABLE IF NOT EXISTS level_completions (
    id BIGSERIAL PRIMARY KEY,
    group_id TEXT NOT NULL,
    level INTEGER NOT NULL,
    players TEXT[] NOT NULL,
    all_completed BOOLEAN NOT NULL,
    reason TEXT NOT NULL,
    waited_ms BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_level_completions_group ON level_completions(group_id, level);
`

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to PostgreSQL and initializes the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Highscore returns the stored value for player.
func (s *PostgresStore) Highscore(ctx context.Context, player string) (int, bool, error) {
	var deaths int
	err := s.pool.QueryRow(ctx,
		`SELECT deaths FROM highscores WHERE player = $1`, player,
	).Scan(&deaths)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("storage: cannot query highscore: %w", err)
	}
	return deaths, true, nil
}

// EnsureHighscore returns the stored value, inserting def for new players.
func (s *PostgresStore) EnsureHighscore(ctx context.Context, player string, def int) (int, error) {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO highscores (player, deaths) VALUES ($1, $2) ON CONFLICT (player) DO NOTHING`,
		player, def,
	); err != nil {
		return 0, fmt.Errorf("storage: cannot insert default highscore: %w", err)
	}
	deaths, _, err := s.Highscore(ctx, player)
	return deaths, err
}

// SetHighscore keeps the lower of the stored and the new value.
func (s *PostgresStore) SetHighscore(ctx context.Context, player string, deaths int) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO highscores (player, deaths) VALUES ($1, $2)
		 ON CONFLICT (player) DO UPDATE
		 SET deaths = EXCLUDED.deaths, updated_at = NOW()
		 WHERE EXCLUDED.deaths < highscores.deaths`,
		player, deaths,
	)
	if err != nil {
		return false, fmt.Errorf("storage: cannot save highscore: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TopHighscores retrieves the best players, fewest deaths first.
func (s *PostgresStore) TopHighscores(ctx context.Context, limit int) ([]Highscore, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT player, deaths, updated_at
		 FROM highscores
		 ORDER BY deaths ASC, player ASC
		 LIMIT $1`,
		clampLimit(limit, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query highscores: %w", err)
	}
	defer rows.Close()

	var entries []Highscore
	for rows.Next() {
		var e Highscore
		if err := rows.Scan(&e.Player, &e.Deaths, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, nil
}

// SaveLevelCompletion records a released barrier.
func (s *PostgresStore) SaveLevelCompletion(ctx context.Context, rec LevelCompletion) (int64, error) {
	players := rec.Players
	if players == nil {
		players = []string{}
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO level_completions (group_id, level, players, all_completed, reason, waited_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		rec.GroupID, rec.Level, players, rec.AllCompleted, rec.Reason, rec.Waited.Milliseconds(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save level completion: %w", err)
	}
	return id, nil
}

// RecentLevelCompletions retrieves the most recent barrier results.
func (s *PostgresStore) RecentLevelCompletions(ctx context.Context, limit int) ([]LevelCompletion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, group_id, level, players, all_completed, reason, waited_ms, created_at
		 FROM level_completions
		 ORDER BY id DESC
		 LIMIT $1`,
		clampLimit(limit, 20),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query level completions: %w", err)
	}
	defer rows.Close()

	var results []LevelCompletion
	for rows.Next() {
		var rec LevelCompletion
		var waitedMS int64
		if err := rows.Scan(&rec.ID, &rec.GroupID, &rec.Level, &rec.Players,
			&rec.AllCompleted, &rec.Reason, &waitedMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		rec.Waited = time.Duration(waitedMS) * time.Millisecond
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return results, nil
}

// Close releases database resources.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
