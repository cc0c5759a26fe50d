package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tiltmaze/internal/completion"
	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/level"
	"github.com/vovakirdan/tiltmaze/internal/powerup"
	"github.com/vovakirdan/tiltmaze/internal/sim"
)

// Each tile is drawn as two cells on one row, which keeps tiles roughly
// square in a terminal.
const (
	cellsPerTile = 2
	FieldCols    = core.GridCols * cellsPerTile
	FieldRows    = core.GridRows
	pxPerCol     = core.TileSize / cellsPerTile
	pxPerRow     = core.TileSize
)

// Glyphs
const (
	WallGlyph   = '█'
	GoalGlyph   = '▒'
	FloorGlyph  = ' '
	MarkGlyph   = '░'
	CoinGlyph   = '●'
	HazardGlyph = '◆'
	PlayerGlyph = '■'
)

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault:  lipgloss.NewStyle(),
	core.ColorRed:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	core.ColorGreen:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	core.ColorYellow:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	core.ColorBlue:     lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	core.ColorMagenta:  lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	core.ColorCyan:     lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	core.ColorWhite:    lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	core.ColorGray:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	core.ColorDarkGray: lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
}

// RenderScreen converts a Screen buffer to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape sequences.
func RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	// Pre-allocate with extra space for ANSI codes
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		// Group consecutive cells with the same color for efficiency
		x := 0
		for x < s.Width() {
			cell := s.GetCell(x, y)
			startColor := cell.Color

			var run strings.Builder
			for x < s.Width() {
				cell = s.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[core.ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}

// cellOf converts a pixel position to a screen cell.
func cellOf(x, y int) (int, int) {
	return x / pxPerCol, y / pxPerRow
}

func tileGlyph(t level.Tile) (rune, core.Color) {
	switch {
	case t.Type == level.TypeBackground:
		return WallGlyph, core.ColorDarkGray
	case t.IsGoal():
		return GoalGlyph, core.ColorGreen
	case t.Type == 1:
		return FloorGlyph, core.ColorDefault
	default:
		return MarkGlyph, core.ColorCyan
	}
}

// fadeGlyph shows a dying player dimmer as the fade progresses.
func fadeGlyph(opacity int) rune {
	switch {
	case opacity > 170:
		return PlayerGlyph
	case opacity > 85:
		return '▪'
	case opacity > 0:
		return '·'
	default:
		return ' '
	}
}

// DrawSession draws the playfield of s into scr, which must be at least
// FieldCols×FieldRows.
func DrawSession(scr *core.Screen, s *sim.Session) {
	scr.Clear()
	m := s.Level()
	if m == nil {
		return
	}

	for _, t := range m.Tiles {
		r, c := tileGlyph(t)
		for i := range cellsPerTile {
			scr.Set(t.Col*cellsPerTile+i, t.Row, r, c)
		}
	}

	for i, coin := range m.Coins {
		if s.CoinCollected(i) {
			continue
		}
		x, y := cellOf(coin.X, coin.Y)
		scr.Set(x, y, CoinGlyph, core.ColorYellow)
	}

	for _, h := range s.Hazards() {
		pos := h.Position()
		x, y := cellOf(pos.X, pos.Y)
		scr.Set(x, y, HazardGlyph, core.ColorBlue)
	}

	for _, p := range s.Players() {
		x, y := cellOf(p.X, p.Y)
		scr.Set(x, y, fadeGlyph(p.Opacity), p.Color())
	}

	switch s.Phase() {
	case completion.PhaseTitleDelay:
		drawCard(scr, strings.Split(m.Title, "\n"), core.ColorWhite)
	case completion.PhaseFinished:
		drawCard(scr, []string{
			"YOU MADE IT",
			fmt.Sprintf("%d deaths", s.TotalDeaths()),
		}, core.ColorYellow)
	}
}

// drawCard centers lines over a blanked band of the playfield.
func drawCard(scr *core.Screen, lines []string, c core.Color) {
	top := (scr.Height() - len(lines)) / 2
	for y := top - 1; y <= top+len(lines); y++ {
		for x := range scr.Width() {
			scr.Set(x, y, ' ', core.ColorDefault)
		}
	}
	for i, line := range lines {
		scr.DrawTextCentered(top+i, line, c)
	}
}

var (
	hudStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	hudDimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	hudWarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	bannerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
)

// RenderHUD returns the status line above the playfield.
func RenderHUD(s *sim.Session, now time.Time) string {
	parts := []string{hudStyle.Render(fmt.Sprintf("Level %d", s.LevelNumber()))}
	for _, p := range s.Players() {
		entry := fmt.Sprintf("%s deaths %d", p.Name, p.Deaths)
		if k := p.Power.Active(); k != powerup.None {
			entry += fmt.Sprintf("  %s %.1fs", k, p.Power.Remaining(now).Seconds())
		}
		style := colorStyles[p.Color()]
		parts = append(parts, style.Render(entry))
	}
	if s.Waiting() {
		parts = append(parts, hudWarnStyle.Render("waiting for other players"))
	}
	for _, p := range s.Players() {
		if p.Power.MessageVisible(now) {
			parts = append(parts, bannerStyle.Render(strings.ToUpper(p.Power.Active().String())+"!"))
		}
	}
	return strings.Join(parts, hudDimStyle.Render(" │ "))
}
