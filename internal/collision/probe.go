// Package collision implements the directional tile probes that block
// player movement, and plain rectangle contact for coins, hazards and goals.
package collision

import (
	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/level"
)

// Grid is the read-only tile lookup the probes need. *level.Map implements it.
type Grid interface {
	TileAt(col, row int) (level.Tile, bool)
}

var _ Grid = (*level.Map)(nil)

// Flags holds the blocking state of the four directions.
type Flags struct {
	Up, Down, Left, Right bool
}

// Probe recomputes all four directional flags for an actor centered at (x, y).
func Probe(g Grid, x, y int) Flags {
	return Flags{
		Up:    Up(g, x, y),
		Down:  Down(g, x, y),
		Left:  Left(g, x, y),
		Right: Right(g, x, y),
	}
}

// Up reports whether the cell above the actor's top corners is background.
func Up(g Grid, x, y int) bool {
	return blocked(g, x-14, y+24, 0, -1) || blocked(g, x+15, y+24, 0, -1)
}

// Down reports whether the cell below the actor's bottom corners is background.
func Down(g Grid, x, y int) bool {
	return blocked(g, x-14, y-24, 0, 1) || blocked(g, x+15, y-24, 0, 1)
}

// Left reports whether the cell left of the actor's left corners is background.
func Left(g Grid, x, y int) bool {
	return blocked(g, x+24, y-15, -1, 0) || blocked(g, x+24, y+14, -1, 0)
}

// Right reports whether the cell right of the actor's right corners is background.
func Right(g Grid, x, y int) bool {
	return blocked(g, x-24, y-15, 1, 0) || blocked(g, x-24, y+15, 1, 0)
}

// blocked looks up the tile containing pixel (px, py), shifted by
// (dc, dr) cells. Only an existing background tile blocks.
func blocked(g Grid, px, py, dc, dr int) bool {
	t, ok := g.TileAt(px/core.TileSize+dc, py/core.TileSize+dr)
	return ok && t.Type == level.TypeBackground
}

// Touches reports whether two boxes overlap.
func Touches(a, b core.Rect) bool {
	return a.Intersects(b)
}

// TouchesGoal reports whether box overlaps any goal tile.
func TouchesGoal(box core.Rect, tiles []level.Tile) bool {
	for _, t := range tiles {
		if t.IsGoal() && box.Intersects(t.Bounds()) {
			return true
		}
	}
	return false
}
