package netsync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/tiltmaze/internal/multiplayer"
)

type testServer struct {
	url    string
	http   *httptest.Server
	server *Server
	cancel context.CancelFunc
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	reg := multiplayer.NewSessionRegistry()
	coord := multiplayer.NewCoordinator(multiplayer.DefaultCoordinatorConfig(), reg, nil)
	coord.Start()

	srv := NewServer(coord, reg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
		coord.Stop()
	})
	return &testServer{
		url:    "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		http:   ts,
		server: srv,
		cancel: cancel,
	}
}

func dial(t *testing.T, ts *testServer, player, group string, wait time.Duration) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, ts.url, ClientOptions{PlayerID: player, Group: group, WaitTimeout: wait})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestHealth(t *testing.T) {
	ts := startServer(t)

	resp, err := http.Get(ts.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestDialJoinsGroup(t *testing.T) {
	ts := startServer(t)
	c := dial(t, ts, "alice", "room", time.Second)

	assert.True(t, c.IsConnected())
	assert.Equal(t, "room", c.Group())
	assert.Equal(t, 0, c.CurrentLevel())
	require.Eventually(t, func() bool { return ts.server.Hub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestDialRequiresGroup(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", ClientOptions{PlayerID: "alice"})
	assert.Error(t, err)
}

func TestSoloCompletionReleasesImmediately(t *testing.T) {
	ts := startServer(t)
	c := dial(t, ts, "alice", "solo", time.Second)

	ok, err := c.ReportLevelCompletion(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, c.CurrentLevel())
}

func TestBarrierWaitsForAllMembers(t *testing.T) {
	ts := startServer(t)
	a := dial(t, ts, "alice", "room", 2*time.Second)
	b := dial(t, ts, "bob", "room", 2*time.Second)

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := a.ReportLevelCompletion(context.Background(), 1)
		done <- result{ok, err}
	}()

	select {
	case <-done:
		t.Fatal("first player released before the second finished")
	case <-time.After(100 * time.Millisecond):
	}

	ok, err := b.ReportLevelCompletion(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.True(t, r.ok)
	case <-time.After(2 * time.Second):
		t.Fatal("first player was never released")
	}
}

func TestBarrierReleasedWhenPeerLeaves(t *testing.T) {
	ts := startServer(t)
	a := dial(t, ts, "alice", "room", 2*time.Second)
	b := dial(t, ts, "bob", "room", 2*time.Second)

	done := make(chan bool, 1)
	go func() {
		ok, _ := a.ReportLevelCompletion(context.Background(), 1)
		done <- ok
	}()
	time.Sleep(50 * time.Millisecond)
	b.Close()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released after peer disconnect")
	}
}

func TestReportTimesOut(t *testing.T) {
	ts := startServer(t)
	a := dial(t, ts, "alice", "room", 150*time.Millisecond)
	dial(t, ts, "bob", "room", time.Second)

	ok, err := a.ReportLevelCompletion(context.Background(), 1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.True(t, a.IsConnected())
}

func TestConnectionLoss(t *testing.T) {
	ts := startServer(t)
	c := dial(t, ts, "alice", "room", time.Second)

	ts.cancel()
	require.Eventually(t, func() bool { return !c.IsConnected() }, 2*time.Second, 10*time.Millisecond)

	ok, err := c.ReportLevelCompletion(context.Background(), 1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestServerRejectsUnknownMessages(t *testing.T) {
	ts := startServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(ts.url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport"}`)))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, TypeError, msg.Type)

	var payload ErrorMessage
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Contains(t, payload.Message, "teleport")
}

func TestLevelCompleteWithoutGroupFails(t *testing.T) {
	ts := startServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(ts.url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"level_complete","data":{"level":1}}`)))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg Message
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, TypeError, msg.Type)
}

func TestEncodeEvent(t *testing.T) {
	msg, err := encodeEvent("alice", multiplayer.LevelResultEvent{
		Level: 3, AllCompleted: true, CurrentLevel: 4, Reason: multiplayer.ReasonAllCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, TypeLevelResult, msg.Type)

	var p LevelResultPayload
	require.NoError(t, json.Unmarshal(msg.Data, &p))
	assert.Equal(t, LevelResultPayload{Level: 3, AllCompleted: true, CurrentLevel: 4, Reason: multiplayer.ReasonAllCompleted.String()}, p)

	msg, err = encodeEvent("alice", multiplayer.GroupJoinedEvent{Group: "room", CurrentLevel: 1, Members: 2})
	require.NoError(t, err)
	var j GroupJoinedPayload
	require.NoError(t, json.Unmarshal(msg.Data, &j))
	assert.Equal(t, "alice", j.PlayerID)
	assert.Equal(t, "room", j.GroupID)
}
