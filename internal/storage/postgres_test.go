package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL integration test")
	}
	return url
}

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := getTestDatabaseURL(t)
	ctx := context.Background()

	s, err := OpenPostgres(ctx, url)
	require.NoError(t, err)

	_, err = s.pool.Exec(ctx, "DELETE FROM highscores; DELETE FROM level_completions")
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestPostgresStore_Highscores(t *testing.T) {
	s := setupPostgresStore(t)
	ctx := context.Background()

	def, err := s.EnsureHighscore(ctx, "alice", DefaultHighscore)
	require.NoError(t, err)
	assert.Equal(t, DefaultHighscore, def)

	changed, err := s.SetHighscore(ctx, "alice", 9)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.SetHighscore(ctx, "alice", 15)
	require.NoError(t, err)
	assert.False(t, changed)

	got, ok, err := s.Highscore(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9, got)

	_, err = s.SetHighscore(ctx, "bob", 2)
	require.NoError(t, err)
	top, err := s.TopHighscores(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bob", top[0].Player)
}

func TestPostgresStore_LevelCompletions(t *testing.T) {
	s := setupPostgresStore(t)
	ctx := context.Background()

	id, err := s.SaveLevelCompletion(ctx, LevelCompletion{
		GroupID: "g", Level: 3, Players: []string{"a", "b"},
		AllCompleted: true, Reason: "all_completed", Waited: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	recs, err := s.RecentLevelCompletions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"a", "b"}, recs[0].Players)
	assert.Equal(t, 2*time.Second, recs[0].Waited)
	assert.False(t, recs[0].CreatedAt.IsZero())
}
