// Package multiplayer runs the server side of the level-completion barrier:
// players join a group, report finished levels, and are released together
// once every connected member of the group has finished the same level.
package multiplayer

import "time"

// SessionID uniquely identifies a connected player (websocket or SSH).
type SessionID string

// GroupID names a set of players that advance through levels together.
type GroupID string

// ResultReason explains how a waiting player was released.
type ResultReason int

const (
	ReasonAllCompleted ResultReason = iota // every member finished the level
	ReasonAlreadyAdvanced                  // group was already past the level
	ReasonSuperseded                       // another member reported a later level
	ReasonTimeout                          // waited longer than the barrier allows
	ReasonLeft                             // the waiter left the group
)

func (r ResultReason) String() string {
	switch r {
	case ReasonAllCompleted:
		return "all_completed"
	case ReasonAlreadyAdvanced:
		return "already_advanced"
	case ReasonSuperseded:
		return "superseded"
	case ReasonTimeout:
		return "timeout"
	case ReasonLeft:
		return "left"
	default:
		return "unknown"
	}
}

// LevelResultSaver persists released barriers.
// This allows the coordinator to save results without depending on the storage package.
type LevelResultSaver interface {
	SaveLevelResult(result LevelResultData) error
}

// LevelResultData describes one release of a group's barrier.
type LevelResultData struct {
	GroupID      string
	Level        int
	Players      []string // sessions released by this result
	AllCompleted bool
	Reason       string
	Waited       time.Duration // longest wait among the released players
}

// GroupInfo is a read-only view of a group.
type GroupInfo struct {
	ID           GroupID
	CurrentLevel int
	Members      int
	Completed    int
	Waiting      int
}
