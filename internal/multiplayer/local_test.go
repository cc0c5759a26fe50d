package multiplayer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startCoordinator(t *testing.T) (*Coordinator, *SessionRegistry) {
	t.Helper()
	reg := NewSessionRegistry()
	c := NewCoordinator(DefaultCoordinatorConfig(), reg, nil)
	c.Start()
	t.Cleanup(c.Stop)
	return c, reg
}

func TestLocalPeerBarrier(t *testing.T) {
	c, reg := startCoordinator(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a, err := JoinLocal(ctx, c, reg, NewChannelSession("a", 16), "room")
	require.NoError(t, err)
	b, err := JoinLocal(ctx, c, reg, NewChannelSession("b", 16), "room")
	require.NoError(t, err)

	done := make(chan bool, 1)
	go func() {
		ok, err := a.ReportLevelCompletion(ctx, 1)
		assert.NoError(t, err)
		done <- ok
	}()

	ok, err := b.ReportLevelCompletion(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-ctx.Done():
		t.Fatal("first peer never released")
	}
}

func TestLocalPeerJoinRequiresGroup(t *testing.T) {
	c, reg := startCoordinator(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := JoinLocal(ctx, c, reg, NewChannelSession("a", 16), "")
	assert.Error(t, err)
	assert.Zero(t, reg.Count())
}

func TestLocalPeerLeave(t *testing.T) {
	c, reg := startCoordinator(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := JoinLocal(ctx, c, reg, NewChannelSession("a", 16), "room")
	require.NoError(t, err)
	assert.True(t, p.IsConnected())

	p.Leave()
	assert.False(t, p.IsConnected())
	assert.Zero(t, reg.Count())

	ok, err := p.ReportLevelCompletion(ctx, 1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrSessionClosed)
}
