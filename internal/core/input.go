package core

// Action represents a semantic game action, abstracted from physical key presses.
type Action int

const (
	ActionNone  Action = iota
	ActionUp           // Up arrow (player 1), W (player 2)
	ActionDown         // Down arrow, S
	ActionLeft         // Left arrow, A
	ActionRight        // Right arrow, D
	ActionPause        // P
	ActionQuit         // Q, Ctrl+C
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionUp:
		return "Up"
	case ActionDown:
		return "Down"
	case ActionLeft:
		return "Left"
	case ActionRight:
		return "Right"
	case ActionPause:
		return "Pause"
	case ActionQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

// PlayerSlot identifies a local player and the control set it uses.
type PlayerSlot int

const (
	Player1 PlayerSlot = 1 // arrow keys
	Player2 PlayerSlot = 2 // WASD
)

// String returns a human-readable name for the slot.
func (p PlayerSlot) String() string {
	switch p {
	case Player1:
		return "P1"
	case Player2:
		return "P2"
	default:
		return "P?"
	}
}

// InputFrame represents the input state for a single player during one simulation tick.
type InputFrame struct {
	Actions map[Action]bool
}

// NewInputFrame creates an empty input frame.
func NewInputFrame() InputFrame {
	return InputFrame{
		Actions: make(map[Action]bool),
	}
}

// Set marks an action as triggered for this frame.
func (f *InputFrame) Set(a Action) {
	if f.Actions == nil {
		f.Actions = make(map[Action]bool)
	}
	f.Actions[a] = true
}

// Has returns true if the given action was triggered this frame.
func (f InputFrame) Has(a Action) bool {
	if f.Actions == nil {
		return false
	}
	return f.Actions[a]
}

// Clear resets all actions for the next frame.
func (f *InputFrame) Clear() {
	for k := range f.Actions {
		delete(f.Actions, k)
	}
}

// MultiInputFrame contains input from all local players for a single tick.
type MultiInputFrame struct {
	ByPlayer map[PlayerSlot]InputFrame
}

// NewMultiInputFrame creates an empty multi-input frame.
func NewMultiInputFrame() MultiInputFrame {
	return MultiInputFrame{
		ByPlayer: make(map[PlayerSlot]InputFrame),
	}
}

// Player returns the input frame for a specific player.
// Returns an empty frame if player has no input.
func (m MultiInputFrame) Player(slot PlayerSlot) InputFrame {
	if m.ByPlayer == nil {
		return NewInputFrame()
	}
	if frame, ok := m.ByPlayer[slot]; ok {
		return frame
	}
	return NewInputFrame()
}

// Set marks an action for one player.
func (m *MultiInputFrame) Set(slot PlayerSlot, a Action) {
	if m.ByPlayer == nil {
		m.ByPlayer = make(map[PlayerSlot]InputFrame)
	}
	frame := m.Player(slot)
	frame.Set(a)
	m.ByPlayer[slot] = frame
}

// Clear resets all player inputs for the next frame.
func (m *MultiInputFrame) Clear() {
	for slot := range m.ByPlayer {
		frame := m.ByPlayer[slot]
		frame.Clear()
		m.ByPlayer[slot] = frame
	}
}
