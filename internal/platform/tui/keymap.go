package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tiltmaze/internal/core"
)

// DefaultHold is how long a key press counts as held. Terminals report key
// presses and repeats, never releases.
const DefaultHold = 180 * time.Millisecond

// GameKeyMap defines the game screen bindings. Player 1 uses the arrows,
// player 2 uses WASD.
type GameKeyMap struct {
	Up, Down, Left, Right     key.Binding
	Up2, Down2, Left2, Right2 key.Binding
	Pause                     key.Binding
	Screenshot                key.Binding
	Quit                      key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k GameKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Up2, k.Pause, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k GameKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Up2, k.Down2, k.Left2, k.Right2},
		{k.Pause, k.Screenshot, k.Quit},
	}
}

// DefaultGameKeyMap returns default key bindings.
func DefaultGameKeyMap() GameKeyMap {
	return GameKeyMap{
		Up:         key.NewBinding(key.WithKeys("up"), key.WithHelp("←↑→↓", "move")),
		Down:       key.NewBinding(key.WithKeys("down")),
		Left:       key.NewBinding(key.WithKeys("left")),
		Right:      key.NewBinding(key.WithKeys("right")),
		Up2:        key.NewBinding(key.WithKeys("w"), key.WithHelp("wasd", "player 2")),
		Down2:      key.NewBinding(key.WithKeys("s")),
		Left2:      key.NewBinding(key.WithKeys("a")),
		Right2:     key.NewBinding(key.WithKeys("d")),
		Pause:      key.NewBinding(key.WithKeys("p", "esc"), key.WithHelp("p", "pause")),
		Screenshot: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "screenshot")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// KeyMapper translates Bubble Tea key messages to player actions.
type KeyMapper struct {
	keys    GameKeyMap
	players int
}

// NewKeyMapper creates a mapper. With a single player the WASD keys also
// steer player 1.
func NewKeyMapper(keys GameKeyMap, players int) *KeyMapper {
	return &KeyMapper{keys: keys, players: players}
}

// MapKey returns the player and action for msg. Pause and quit are
// reported for Player1.
func (km *KeyMapper) MapKey(msg tea.KeyMsg) (core.PlayerSlot, core.Action) {
	k := km.keys
	switch {
	case key.Matches(msg, k.Quit):
		return core.Player1, core.ActionQuit
	case key.Matches(msg, k.Pause):
		return core.Player1, core.ActionPause
	case key.Matches(msg, k.Up):
		return core.Player1, core.ActionUp
	case key.Matches(msg, k.Down):
		return core.Player1, core.ActionDown
	case key.Matches(msg, k.Left):
		return core.Player1, core.ActionLeft
	case key.Matches(msg, k.Right):
		return core.Player1, core.ActionRight
	}

	second := core.Player2
	if km.players < 2 {
		second = core.Player1
	}
	switch {
	case key.Matches(msg, k.Up2):
		return second, core.ActionUp
	case key.Matches(msg, k.Down2):
		return second, core.ActionDown
	case key.Matches(msg, k.Left2):
		return second, core.ActionLeft
	case key.Matches(msg, k.Right2):
		return second, core.ActionRight
	}
	return core.Player1, core.ActionNone
}

type heldKey struct {
	slot   core.PlayerSlot
	action core.Action
}

// heldInput turns discrete key presses into "pressed" signals that last
// until the hold window passes without a repeat.
type heldInput struct {
	hold  time.Duration
	until map[heldKey]time.Time
}

func newHeldInput(hold time.Duration) *heldInput {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &heldInput{hold: hold, until: make(map[heldKey]time.Time)}
}

func (h *heldInput) press(slot core.PlayerSlot, a core.Action, now time.Time) {
	h.until[heldKey{slot, a}] = now.Add(h.hold)
}

// frame returns the actions still held at now and forgets expired ones.
func (h *heldInput) frame(now time.Time) core.MultiInputFrame {
	f := core.NewMultiInputFrame()
	for k, until := range h.until {
		if now.After(until) {
			delete(h.until, k)
			continue
		}
		f.Set(k.slot, k.action)
	}
	return f
}

func (h *heldInput) release() {
	clear(h.until)
}
