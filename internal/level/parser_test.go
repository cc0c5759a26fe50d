package level

import (
	"errors"
	"strings"
	"testing"

	"github.com/vovakirdan/tiltmaze/internal/core"
)

// digitGrid returns 15 lines of 20 digits where cell i holds i%10.
func digitGrid() []string {
	lines := make([]string, core.GridRows)
	for row := range lines {
		var sb strings.Builder
		for col := 0; col < core.GridCols; col++ {
			sb.WriteByte(byte('0' + (row*core.GridCols+col)%10))
		}
		lines[row] = sb.String()
	}
	return lines
}

func gridBytes(lines []string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestParseFullGrid(t *testing.T) {
	m := Parse(nil, gridBytes(digitGrid()))

	if len(m.Tiles) != core.GridTiles {
		t.Fatalf("len(Tiles) = %d, expected %d", len(m.Tiles), core.GridTiles)
	}
	if !m.Complete() {
		t.Error("Complete() = false for a 300 tile grid")
	}
	if len(m.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", m.Warnings)
	}
	for i, tile := range m.Tiles {
		if tile.Col != i%20 || tile.Row != i/20 {
			t.Fatalf("tile %d at (%d,%d), expected (%d,%d)", i, tile.Col, tile.Row, i%20, i/20)
		}
		if tile.Type != i%10 {
			t.Fatalf("tile %d type %d, expected %d", i, tile.Type, i%10)
		}
	}
}

func TestParseInvalidTileCharacter(t *testing.T) {
	const k = 47
	lines := digitGrid()
	row, col := k/20, k%20
	lines[row] = lines[row][:col] + "x" + lines[row][col+1:]

	m := Parse(nil, gridBytes(lines))

	if len(m.Tiles) != core.GridTiles {
		t.Fatalf("len(Tiles) = %d, expected %d", len(m.Tiles), core.GridTiles)
	}
	if m.Tiles[k].Type != TypeBackground {
		t.Errorf("tile %d type = %d, expected background", k, m.Tiles[k].Type)
	}
	if len(m.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d: %v", len(m.Warnings), m.Warnings)
	}
	if !errors.Is(m.Warnings[0], ErrParse) {
		t.Errorf("warning %v should wrap ErrParse", m.Warnings[0])
	}
}

func TestParseGridShapes(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		tiles    int
		complete bool
	}{
		{
			name:  "short grid",
			lines: []string{"11111111111111111111", "2222"},
			tiles: 24,
		},
		{
			name:     "whitespace inside lines is stripped",
			lines:    append([]string{"1 1 1 1 1 1 1 1 1 1 1 1 1 1 1 1 1 1 1 1"}, digitGrid()[1:]...),
			tiles:    300,
			complete: true,
		},
		{
			name:     "long lines truncate at 300 cells",
			lines:    repeatLine(strings.Repeat("1", 25), 15),
			tiles:    300,
			complete: true,
		},
		{
			name:  "lines past the grid region are not tiles",
			lines: append(repeatLine(strings.Repeat("1", 20), 10), "", "", "", "", "", strings.Repeat("2", 20)),
			tiles: 200,
		},
		{
			name:  "blank lines inside the grid are skipped",
			lines: []string{"11111111111111111111", "   ", "22222222222222222222"},
			tiles: 40,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := Parse(nil, gridBytes(tc.lines))
			if len(m.Tiles) != tc.tiles {
				t.Errorf("len(Tiles) = %d, expected %d", len(m.Tiles), tc.tiles)
			}
			if m.Complete() != tc.complete {
				t.Errorf("Complete() = %v, expected %v", m.Complete(), tc.complete)
			}
		})
	}
}

func repeatLine(line string, n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = line
	}
	return lines
}

func TestParseProperties(t *testing.T) {
	tests := []struct {
		name  string
		props string
		spawn core.Point
		coins []Coin
		id    int
		title string
		warns int
	}{
		{
			name:  "spawn scaled to tile center",
			props: "spawn_point=2,3\n",
			spawn: core.Point{X: 100, Y: 140},
			id:    -1,
			title: DefaultTitle,
		},
		{
			name:  "coin list",
			props: "coins=1,1-2,2\n",
			spawn: core.Point{X: 20, Y: 20},
			coins: []Coin{{X: 40, Y: 40}, {X: 80, Y: 80}},
			id:    -1,
			title: DefaultTitle,
		},
		{
			name:  "single fractional coin truncates",
			props: "coins=1.5,2.76\n",
			spawn: core.Point{X: 20, Y: 20},
			coins: []Coin{{X: 60, Y: 110}},
			id:    -1,
			title: DefaultTitle,
		},
		{
			name:  "null coins",
			props: "coins=null\nlevel_id=4\n",
			spawn: core.Point{X: 20, Y: 20},
			id:    4,
			title: DefaultTitle,
		},
		{
			name:  "title with escaped newline",
			props: "level_title=First line\\nsecond line\n",
			spawn: core.Point{X: 20, Y: 20},
			id:    -1,
			title: "First line\nsecond line",
		},
		{
			name:  "bad values keep defaults",
			props: "spawn_point=a,b\nlevel_id=one\ncoins=1,1-zz,2\n",
			spawn: core.Point{X: 20, Y: 20},
			coins: []Coin{{X: 40, Y: 40}},
			id:    -1,
			title: DefaultTitle,
			warns: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := Parse([]byte(tc.props), nil)
			if m.Spawn != tc.spawn {
				t.Errorf("Spawn = %+v, expected %+v", m.Spawn, tc.spawn)
			}
			if m.ID != tc.id {
				t.Errorf("ID = %d, expected %d", m.ID, tc.id)
			}
			if m.Title != tc.title {
				t.Errorf("Title = %q, expected %q", m.Title, tc.title)
			}
			if len(m.Coins) != len(tc.coins) {
				t.Fatalf("Coins = %+v, expected %+v", m.Coins, tc.coins)
			}
			for i := range tc.coins {
				if m.Coins[i] != tc.coins[i] {
					t.Errorf("Coins[%d] = %+v, expected %+v", i, m.Coins[i], tc.coins[i])
				}
			}
			if len(m.Warnings) != tc.warns {
				t.Errorf("len(Warnings) = %d, expected %d: %v", len(m.Warnings), tc.warns, m.Warnings)
			}
		})
	}
}

func TestParseDefaults(t *testing.T) {
	m := Parse(nil, nil)
	if m.ID != -1 || m.Title != DefaultTitle {
		t.Errorf("defaults = id %d title %q", m.ID, m.Title)
	}
	if m.Spawn != (core.Point{X: 20, Y: 20}) {
		t.Errorf("Spawn = %+v, expected (20,20)", m.Spawn)
	}
	if len(m.Tiles) != 0 || m.Complete() {
		t.Error("default map should have no tiles")
	}
}

func TestParseHazards(t *testing.T) {
	lines := digitGrid()
	lines = append(lines, "", "", "", "") // lines 15..18
	lines = append(lines,
		"1-2-5,4-5,8-3-false-true",      // valid
		"",                              // blank, skipped
		"2 - 2 - 6,4 - 6,8 - 1.5 - TRUE - no", // whitespace stripped
		"3-2-7,4",                       // too few fields, skipped silently
		"4-2-7,4-7,8-fast-true-true",    // bad speed, warning
		"5-2-7-7,8-3-true-true",         // start has no y: silently dropped
		"x-2-7,4-7,8-3-true-true",       // bad id, warning
	)

	m := Parse(nil, gridBytes(lines))

	if len(m.Hazards) != 2 {
		t.Fatalf("len(Hazards) = %d, expected 2: %+v", len(m.Hazards), m.Hazards)
	}

	want := HazardDescriptor{
		ID: 1, GroupID: 2,
		Start: core.Point{X: 5, Y: 4}, End: core.Point{X: 5, Y: 8},
		Speed: 3, FlagA: false, FlagB: true,
	}
	if m.Hazards[0] != want {
		t.Errorf("Hazards[0] = %+v, expected %+v", m.Hazards[0], want)
	}
	if h := m.Hazards[1]; h.ID != 2 || h.Speed != 1.5 || !h.FlagA || h.FlagB {
		t.Errorf("Hazards[1] = %+v", h)
	}

	if len(m.Warnings) != 2 {
		t.Fatalf("len(Warnings) = %d, expected 2: %v", len(m.Warnings), m.Warnings)
	}
	for _, w := range m.Warnings {
		if w.Source != "hazards" {
			t.Errorf("warning source = %q, expected hazards", w.Source)
		}
		if errors.Is(w, ErrFieldIndex) {
			t.Errorf("field index errors must not surface as warnings: %v", w)
		}
	}
	if m.Warnings[0].Line != 24 {
		t.Errorf("first warning on line %d, expected 24", m.Warnings[0].Line)
	}
}

func TestParsePointFieldIndex(t *testing.T) {
	if _, err := parsePoint("7"); !errors.Is(err, ErrFieldIndex) {
		t.Errorf("parsePoint(\"7\") error = %v, expected ErrFieldIndex", err)
	}
	if _, err := parsePoint("a,1"); err == nil || errors.Is(err, ErrFieldIndex) {
		t.Errorf("parsePoint(\"a,1\") error = %v, expected a number error", err)
	}
}

func TestSolidArea(t *testing.T) {
	lines := []string{"01000000000000000000"}
	m := Parse(nil, gridBytes(lines))

	rects := m.Solid.Rects()
	if len(rects) != 1 {
		t.Fatalf("len(Rects) = %d, expected 1", len(rects))
	}
	if want := core.NewRect(37, 19, 46, 46); rects[0] != want {
		t.Errorf("rect = %+v, expected %+v", rects[0], want)
	}
	if !m.Solid.Contains(37, 19) || m.Solid.Contains(83, 19) {
		t.Error("Contains() should honour the inflated, exclusive bounds")
	}
	if m.Solid.Bounds() != rects[0] {
		t.Errorf("Bounds() = %+v", m.Solid.Bounds())
	}
}

func TestTileAt(t *testing.T) {
	m := Parse(nil, gridBytes(digitGrid()))

	tests := []struct {
		col, row int
		ok       bool
		typ      int
	}{
		{0, 0, true, 0},
		{19, 0, true, 9},
		{0, 1, true, 0},
		{5, 14, true, 5},
		{-1, 0, false, 0},
		{20, 0, false, 0},
		{0, 15, false, 0},
		{0, -1, false, 0},
	}
	for _, tc := range tests {
		tile, ok := m.TileAt(tc.col, tc.row)
		if ok != tc.ok {
			t.Errorf("TileAt(%d,%d) ok = %v, expected %v", tc.col, tc.row, ok, tc.ok)
			continue
		}
		if ok && tile.Type != tc.typ {
			t.Errorf("TileAt(%d,%d) type = %d, expected %d", tc.col, tc.row, tile.Type, tc.typ)
		}
	}
}
