package highscore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/tiltmaze/internal/storage"
)

type memStore struct {
	mu     sync.Mutex
	scores map[string]int
	err    error
}

func newMemStore() *memStore { return &memStore{scores: map[string]int{}} }

func (m *memStore) EnsureHighscore(_ context.Context, player string, def int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if v, ok := m.scores[player]; ok {
		return v, nil
	}
	m.scores[player] = def
	return def, nil
}

func (m *memStore) SetHighscore(_ context.Context, player string, deaths int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if v, ok := m.scores[player]; ok && v <= deaths {
		return false, nil
	}
	m.scores[player] = deaths
	return true, nil
}

func TestHandle(t *testing.T) {
	store := newMemStore()
	s := NewServer("", store, nil)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"GET_HIGHSCORE alice", "1000"},
		{"SET_HIGHSCORE alice, 12", ReplyUpdated},
		{"GET_HIGHSCORE alice", "12"},
		{"SET_HIGHSCORE alice, 40", ReplyUpdated},
		{"GET_HIGHSCORE alice\n", "12"},
		{"SET_HIGHSCORE alice 12", ReplyInvalidSet},
		{"SET_HIGHSCORE a, b, 3", ReplyInvalidSet},
		{"SET_HIGHSCORE , 3", ReplyInvalidSet},
		{"SET_HIGHSCORE alice, many", ReplyInvalidScore},
		{"DELETE_HIGHSCORE alice", ReplyUnknown},
		{"GET_HIGHSCORE", ReplyInvalidInput},
		{"", ReplyInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			assert.Equal(t, tc.want, s.Handle(ctx, tc.line))
		})
	}
}

func TestHandleStorageFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk on fire")
	s := NewServer("", store, nil)

	assert.Equal(t, ReplyStorageFailed, s.Handle(context.Background(), "SET_HIGHSCORE bob, 1"))
	assert.Equal(t, "1000", s.Handle(context.Background(), "GET_HIGHSCORE bob"))
}

func startServer(t *testing.T, store ScoreStore) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer("127.0.0.1:0", store, nil)
	require.NoError(t, s.Listen(ctx))

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return s
}

func TestClientServerRoundTrip(t *testing.T) {
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := startServer(t, store)
	c := NewClient(s.Addr(), time.Second)
	ctx := context.Background()

	got, err := c.GetHighscore(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultHighscore, got)

	reply, err := c.ReportHighscore(ctx, "carol", 7)
	require.NoError(t, err)
	assert.Equal(t, ReplyUpdated, reply)

	got, err = c.GetHighscore(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestClientUnreachable(t *testing.T) {
	s := startServer(t, newMemStore())
	addr := s.Addr()

	// Nothing listens on port 1.
	c := NewClient("127.0.0.1:1", 200*time.Millisecond)
	_, err := c.ReportHighscore(context.Background(), "dave", 1)
	assert.Error(t, err)

	c = NewClient(addr, time.Second)
	_, err = c.ReportHighscore(context.Background(), "dave", 1)
	assert.NoError(t, err)
}

func TestSetLine(t *testing.T) {
	assert.Equal(t, "SET_HIGHSCORE player, 42", SetLine("player", 42))
	assert.Equal(t, "GET_HIGHSCORE player", GetLine("player"))
}

func TestServerReportHighscoreInProcess(t *testing.T) {
	store := newMemStore()
	s := NewServer("127.0.0.1:0", store, nil)

	reply, err := s.ReportHighscore(context.Background(), "erin", 12)
	require.NoError(t, err)
	assert.Equal(t, ReplyUpdated, reply)
	assert.Equal(t, 12, store.scores["erin"])
}
