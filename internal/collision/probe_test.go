package collision

import (
	"strings"
	"testing"

	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/level"
)

// mapWith returns a full grid of floor tiles with one cell set to typ.
func mapWith(col, row int, typ byte) *level.Map {
	lines := make([]string, core.GridRows)
	for r := range lines {
		line := []byte(strings.Repeat("1", core.GridCols))
		if r == row {
			line[col] = typ
		}
		lines[r] = string(line)
	}
	return level.Parse(nil, []byte(strings.Join(lines, "\n")))
}

func TestDirectionalProbes(t *testing.T) {
	// Each case puts the actor so that one probe pair reaches into the
	// neighbouring cell of tile (5,5).
	tests := []struct {
		name     string
		x, y     int
		col, row int
		probe    func(Grid, int, int) bool
	}{
		{"up", 220, 215, 5, 4, Up},
		{"down", 220, 224, 5, 6, Down},
		{"left", 215, 220, 4, 5, Left},
		{"right", 224, 220, 6, 5, Right},
	}

	for _, tc := range tests {
		t.Run(tc.name+" background blocks", func(t *testing.T) {
			if !tc.probe(mapWith(tc.col, tc.row, '0'), tc.x, tc.y) {
				t.Errorf("expected %s blocked by background tile at (%d,%d)", tc.name, tc.col, tc.row)
			}
		})
		t.Run(tc.name+" floor passes", func(t *testing.T) {
			for _, typ := range []byte("1239") {
				if tc.probe(mapWith(tc.col, tc.row, typ), tc.x, tc.y) {
					t.Errorf("type %c should not block %s", typ, tc.name)
				}
			}
		})
	}
}

func TestProbeCenteredActorLooksAtOwnCell(t *testing.T) {
	// Centered in (5,5) every probe lands on the actor's own cell, so a
	// wall one cell above does not block yet.
	m := mapWith(5, 4, '0')
	if f := Probe(m, 220, 220); f != (Flags{}) {
		t.Errorf("Probe() = %+v, expected no blocking", f)
	}
	// One pixel further up the leading edge crosses into row 4.
	if f := Probe(m, 220, 215); !f.Up || f.Down || f.Left || f.Right {
		t.Errorf("Probe() = %+v, expected only Up", f)
	}
}

func TestProbeOutsideGridDoesNotBlock(t *testing.T) {
	m := level.Parse(nil, []byte(strings.Repeat("1", 20)))
	// Row 1 and beyond does not exist in a one-row grid.
	if Down(m, 220, 30) {
		t.Error("missing tiles must not block")
	}
	// x+24 < 40 probes column -1.
	if Left(m, 10, 20) {
		t.Error("column -1 does not exist and must not block")
	}
}

func TestTouchesGoal(t *testing.T) {
	tiles := []level.Tile{
		{Col: 0, Row: 0, Type: 1},
		{Col: 1, Row: 0, Type: level.TypeGoal},
	}
	tests := []struct {
		name string
		box  core.Rect
		want bool
	}{
		{"inside goal", core.NewRect(45, 5, 31, 31), true},
		{"edge contact only", core.NewRect(9, 5, 31, 31), false},
		{"one pixel in", core.NewRect(10, 5, 31, 31), true},
		{"floor only", core.NewRect(0, 0, 20, 20), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TouchesGoal(tc.box, tiles); got != tc.want {
				t.Errorf("TouchesGoal() = %v, expected %v", got, tc.want)
			}
		})
	}
}
