package multiplayer

// SessionEvent represents an event sent from the coordinator to a session.
type SessionEvent interface {
	sessionEvent()
}

// GroupJoinedEvent confirms group membership.
type GroupJoinedEvent struct {
	Group        GroupID
	CurrentLevel int
	Members      int
}

func (GroupJoinedEvent) sessionEvent() {}

// LevelWaitingEvent tells a player their completion is recorded and others
// are still playing. It is re-sent to all waiters as progress changes.
type LevelWaitingEvent struct {
	Level     int
	Completed int
	Members   int
}

func (LevelWaitingEvent) sessionEvent() {}

// LevelResultEvent releases a waiting player.
type LevelResultEvent struct {
	Level        int
	AllCompleted bool
	CurrentLevel int
	Reason       ResultReason
}

func (LevelResultEvent) sessionEvent() {}

// ErrorEvent reports a rejected request.
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) sessionEvent() {}

// CoordinatorMessage represents a message from a session to the coordinator.
type CoordinatorMessage interface {
	coordinatorMessage()
}

// JoinGroupMsg binds a session to a group, leaving any previous one.
type JoinGroupMsg struct {
	SessionID SessionID
	Group     GroupID
}

func (JoinGroupMsg) coordinatorMessage() {}

// LeaveGroupMsg removes a session from its group.
type LeaveGroupMsg struct {
	SessionID SessionID
}

func (LeaveGroupMsg) coordinatorMessage() {}

// LevelCompleteMsg reports that a session finished a level.
type LevelCompleteMsg struct {
	SessionID SessionID
	Level     int
}

func (LevelCompleteMsg) coordinatorMessage() {}

// SessionDisconnectedMsg is sent when a session disconnects.
type SessionDisconnectedMsg struct {
	SessionID SessionID
}

func (SessionDisconnectedMsg) coordinatorMessage() {}
