package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/tiltmaze/internal/completion"
	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/level"
	"github.com/vovakirdan/tiltmaze/internal/sim"
)

type mapLoader struct{ m *level.Map }

func (l mapLoader) Load(int) (*level.Map, error) { return l.m, nil }

// testSession returns a started one-player session on a map with a wall
// row at the top, a goal in the bottom right corner and one coin.
func testSession(t *testing.T) *sim.Session {
	t.Helper()
	lines := make([]string, core.GridRows)
	for r := range lines {
		lines[r] = strings.Repeat("1", core.GridCols)
	}
	lines[0] = strings.Repeat("0", core.GridCols)
	lines[core.GridRows-1] = strings.Repeat("1", core.GridCols-1) + "3"
	m := level.Parse([]byte("spawn_point=2,3\ncoins=5,5\n"), []byte(strings.Join(lines, "\n")))

	progress := completion.New(completion.Config{FinalLevel: 3}, completion.Options{
		Loader: mapLoader{m},
		After:  func(_ time.Duration, f func()) { f() },
	})
	s := sim.NewSession(sim.Config{Players: 1}, progress, nil, nil)
	s.Start(1)
	return s
}

func TestDrawSessionTitleCard(t *testing.T) {
	s := testSession(t)
	scr := core.NewScreen(FieldCols, FieldRows)

	DrawSession(scr, s)

	var found bool
	for y := range scr.Height() {
		if strings.Contains(scr.Row(y), "here") {
			found = true
		}
	}
	if !found {
		t.Errorf("title card not drawn:\n%s", scr.String())
	}
}

func TestDrawSessionPlayfield(t *testing.T) {
	s := testSession(t)
	s.Tick(time.Now(), core.NewMultiInputFrame())
	if s.Phase() != completion.PhasePlaying {
		t.Fatalf("phase = %v, expected playing", s.Phase())
	}

	scr := core.NewScreen(FieldCols, FieldRows)
	DrawSession(scr, s)

	tests := []struct {
		name  string
		x, y  int
		glyph rune
		color core.Color
	}{
		{"wall left half", 0, 0, WallGlyph, core.ColorDarkGray},
		{"wall right half", 1, 0, WallGlyph, core.ColorDarkGray},
		{"floor", 2, 2, FloorGlyph, core.ColorDefault},
		{"goal", FieldCols - 1, FieldRows - 1, GoalGlyph, core.ColorGreen},
		{"coin", 10, 5, CoinGlyph, core.ColorYellow},
		{"player", 5, 3, PlayerGlyph, core.ColorRed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cell := scr.GetCell(tc.x, tc.y)
			if cell.Rune != tc.glyph || cell.Color != tc.color {
				t.Errorf("cell (%d,%d) = %q/%v, expected %q/%v", tc.x, tc.y, cell.Rune, cell.Color, tc.glyph, tc.color)
			}
		})
	}
}

func TestFadeGlyph(t *testing.T) {
	tests := []struct {
		opacity int
		want    rune
	}{
		{255, PlayerGlyph},
		{171, PlayerGlyph},
		{170, '▪'},
		{86, '▪'},
		{85, '·'},
		{1, '·'},
		{0, ' '},
	}
	for _, tc := range tests {
		if got := fadeGlyph(tc.opacity); got != tc.want {
			t.Errorf("fadeGlyph(%d) = %q, expected %q", tc.opacity, got, tc.want)
		}
	}
}

func TestRenderHUD(t *testing.T) {
	s := testSession(t)
	hud := RenderHUD(s, time.Now())
	if !strings.Contains(hud, "Level 1") {
		t.Errorf("HUD %q missing level", hud)
	}
	if !strings.Contains(hud, "deaths 0") {
		t.Errorf("HUD %q missing deaths", hud)
	}
}
