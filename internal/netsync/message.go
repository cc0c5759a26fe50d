// Package netsync carries the level-completion barrier over websockets:
// a server that bridges connections to the multiplayer coordinator and a
// client the game uses to report finished levels.
package netsync

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/tiltmaze/internal/multiplayer"
)

// Message represents a WebSocket message with type-based routing.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message types - client to server
const (
	TypeJoinGroup     = "join_group"
	TypeLevelComplete = "level_complete"
)

// Message types - server to client
const (
	TypeGroupJoined  = "group_joined"
	TypeLevelWaiting = "level_waiting"
	TypeLevelResult  = "level_result"
	TypeError        = "error"
)

// JoinGroupPayload binds the connection to a group.
type JoinGroupPayload struct {
	PlayerID string `json:"player_id"`
	GroupID  string `json:"group_id"`
}

// GroupJoinedPayload confirms membership.
type GroupJoinedPayload struct {
	PlayerID     string `json:"player_id"`
	GroupID      string `json:"group_id"`
	CurrentLevel int    `json:"current_level"`
	Members      int    `json:"members"`
}

// LevelCompletePayload reports a finished level.
type LevelCompletePayload struct {
	Level int `json:"level"`
}

// LevelWaitingPayload reports barrier progress.
type LevelWaitingPayload struct {
	Level     int `json:"level"`
	Completed int `json:"completed"`
	Members   int `json:"members"`
}

// LevelResultPayload releases a waiting player.
type LevelResultPayload struct {
	Level        int    `json:"level"`
	AllCompleted bool   `json:"all_completed"`
	CurrentLevel int    `json:"current_level"`
	Reason       string `json:"reason"`
}

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	Message string `json:"message"`
}

// NewErrorMessage creates a Message with an error payload.
func NewErrorMessage(msg string) Message {
	data, _ := json.Marshal(ErrorMessage{Message: msg})
	return Message{Type: TypeError, Data: data}
}

// NewMessage creates a Message with a typed payload.
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Data: data}, nil
}

// encodeEvent converts a coordinator event into its wire form.
func encodeEvent(playerID string, evt multiplayer.SessionEvent) (Message, error) {
	switch e := evt.(type) {
	case multiplayer.GroupJoinedEvent:
		return NewMessage(TypeGroupJoined, GroupJoinedPayload{
			PlayerID:     playerID,
			GroupID:      string(e.Group),
			CurrentLevel: e.CurrentLevel,
			Members:      e.Members,
		})
	case multiplayer.LevelWaitingEvent:
		return NewMessage(TypeLevelWaiting, LevelWaitingPayload(e))
	case multiplayer.LevelResultEvent:
		return NewMessage(TypeLevelResult, LevelResultPayload{
			Level:        e.Level,
			AllCompleted: e.AllCompleted,
			CurrentLevel: e.CurrentLevel,
			Reason:       e.Reason.String(),
		})
	case multiplayer.ErrorEvent:
		return NewErrorMessage(e.Message), nil
	default:
		return Message{}, fmt.Errorf("netsync: unsupported event %T", evt)
	}
}
