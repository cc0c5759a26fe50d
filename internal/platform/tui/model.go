package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/sim"
)

// MinWidth and MinHeight are the smallest terminal that fits the HUD, the
// playfield and the help line.
const (
	MinWidth  = FieldCols
	MinHeight = FieldRows + 2
)

var (
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	fieldStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("238"))
)

// GameOptions configures a GameModel.
type GameOptions struct {
	TickRate      int
	Players       int
	Hold          time.Duration // key hold window, DefaultHold when zero
	ScreenshotDir string        // empty disables ctrl+s
}

// GameModel is the Bubble Tea model that drives a sim.Session.
type GameModel struct {
	session *sim.Session
	screen  *core.Screen
	keys    GameKeyMap
	mapper  *KeyMapper
	held    *heldInput
	help    help.Model
	opts    GameOptions

	width, height int
	paused        bool
	quitting      bool
	lastTick      time.Time
}

// NewGameModel creates a model for a session that has already been started.
func NewGameModel(session *sim.Session, opts GameOptions) GameModel {
	if opts.TickRate <= 0 {
		opts.TickRate = core.DefaultConfig().TickRate
	}
	keys := DefaultGameKeyMap()
	return GameModel{
		session: session,
		screen:  core.NewScreen(FieldCols, FieldRows),
		keys:    keys,
		mapper:  NewKeyMapper(keys, opts.Players),
		held:    newHeldInput(opts.Hold),
		help:    help.New(),
		opts:    opts,
	}
}

// Init starts the tick loop.
func (m GameModel) Init() tea.Cmd {
	return tickCmd(m.opts.TickRate)
}

// Update handles messages and updates the model state.
func (m GameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg, time.Now())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick(time.Time(msg))
	}
	return m, nil
}

func (m GameModel) handleKey(msg tea.KeyMsg, now time.Time) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Screenshot) {
		//nolint:errcheck // Best-effort save, game continues regardless
		m.saveScreenshot(now)
		return m, nil
	}

	slot, action := m.mapper.MapKey(msg)
	switch action {
	case core.ActionQuit:
		m.quitting = true
		return m, tea.Quit
	case core.ActionPause:
		m.paused = !m.paused
		m.held.release()
		return m, nil
	case core.ActionNone:
		return m, nil
	}
	if !m.paused {
		m.held.press(slot, action, now)
	}
	return m, nil
}

func (m GameModel) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}
	m.lastTick = now
	if !m.paused {
		m.session.Tick(now, m.held.frame(now))
	}
	return m, tickCmd(m.opts.TickRate)
}

// saveScreenshot writes the playfield as plain text and returns the path.
func (m GameModel) saveScreenshot(now time.Time) (string, error) {
	if m.opts.ScreenshotDir == "" {
		return "", nil
	}
	DrawSession(m.screen, m.session)

	if err := os.MkdirAll(m.opts.ScreenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("tui: screenshot dir: %w", err)
	}
	name := fmt.Sprintf("level%d_%s.txt", m.session.LevelNumber(), now.Format("20060102_150405"))
	path := filepath.Join(m.opts.ScreenshotDir, name)
	if err := os.WriteFile(path, []byte(m.screen.String()), 0o600); err != nil {
		return "", fmt.Errorf("tui: screenshot: %w", err)
	}
	return path, nil
}

// View renders the HUD, the playfield and the help line.
func (m GameModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width > 0 && (m.width < MinWidth || m.height < MinHeight) {
		return fmt.Sprintf("Terminal too small: need %dx%d, have %dx%d", MinWidth, MinHeight, m.width, m.height)
	}

	now := m.lastTick
	if now.IsZero() {
		now = time.Now()
	}
	DrawSession(m.screen, m.session)

	var sb strings.Builder
	sb.WriteString(RenderHUD(m.session, now))
	if m.paused {
		sb.WriteString("  " + pausedStyle.Render("PAUSED"))
	}
	sb.WriteByte('\n')

	field := RenderScreen(m.screen)
	if m.height >= MinHeight+2 && m.width >= MinWidth+2 {
		field = fieldStyle.Render(field)
	}
	sb.WriteString(field)
	sb.WriteByte('\n')
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// Session returns the driven session.
func (m GameModel) Session() *sim.Session { return m.session }

// Run starts the Bubble Tea program for session and blocks until the
// player quits.
func Run(session *sim.Session, opts GameOptions) error {
	p := tea.NewProgram(
		NewGameModel(session, opts),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
