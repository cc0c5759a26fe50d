package multiplayer

import (
	"context"
	"errors"
	"fmt"
)

// ErrSessionClosed is returned once a LocalPeer's session has ended.
var ErrSessionClosed = errors.New("multiplayer: session closed")

// LocalPeer lets a game running in the server process (an SSH player) take
// part in a group barrier without a network connection. It waits on the
// session's event channel for the coordinator's answer.
type LocalPeer struct {
	coord    *Coordinator
	sessions *SessionRegistry
	session  *ChannelSession
}

// JoinLocal registers session, joins it to group and waits for the
// confirmation.
func JoinLocal(ctx context.Context, coord *Coordinator, sessions *SessionRegistry, session *ChannelSession, group GroupID) (*LocalPeer, error) {
	sessions.Register(session)
	coord.Send(JoinGroupMsg{SessionID: session.ID(), Group: group})
	for {
		evt, err := session.Next(ctx)
		if err != nil {
			sessions.Unregister(session.ID())
			return nil, err
		}
		switch e := evt.(type) {
		case GroupJoinedEvent:
			return &LocalPeer{coord: coord, sessions: sessions, session: session}, nil
		case ErrorEvent:
			sessions.Unregister(session.ID())
			return nil, fmt.Errorf("multiplayer: join %s: %s", group, e.Message)
		}
	}
}

// IsConnected reports whether the session is still open.
func (p *LocalPeer) IsConnected() bool {
	select {
	case <-p.session.Done():
		return false
	default:
		return true
	}
}

// ReportLevelCompletion reports level and blocks until the barrier
// releases this session.
func (p *LocalPeer) ReportLevelCompletion(ctx context.Context, level int) (bool, error) {
	if !p.IsConnected() {
		return false, ErrSessionClosed
	}
	p.coord.Send(LevelCompleteMsg{SessionID: p.session.ID(), Level: level})
	for {
		evt, err := p.session.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) && !p.IsConnected() {
				return false, ErrSessionClosed
			}
			return false, err
		}
		switch e := evt.(type) {
		case LevelResultEvent:
			if e.Level == level {
				return e.AllCompleted, nil
			}
		case ErrorEvent:
			return false, fmt.Errorf("multiplayer: level %d: %s", level, e.Message)
		}
	}
}

// Leave removes the session from its group and closes it.
func (p *LocalPeer) Leave() {
	p.coord.Send(SessionDisconnectedMsg{SessionID: p.session.ID()})
	p.sessions.Unregister(p.session.ID())
	p.session.Close()
}
