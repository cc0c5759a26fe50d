package level

import "github.com/vovakirdan/tiltmaze/internal/core"

// DefaultTitle is shown when a level has no title property.
const DefaultTitle = "Intimidating message\nhere"

// Map is a parsed level. It is never mutated after Parse returns; a level
// transition replaces it with a new Map.
type Map struct {
	Number   int // level number it was loaded for, 0 if parsed directly
	ID       int
	Title    string
	Spawn    core.Point
	Tiles    []Tile
	Coins    []Coin
	Hazards  []HazardDescriptor
	Solid    SolidArea
	Warnings []Warning
}

// DefaultMap returns the map used when level resources are missing.
func DefaultMap() *Map {
	return &Map{
		ID:    -1,
		Title: DefaultTitle,
		Spawn: core.Point{X: core.TileSize / 2, Y: core.TileSize / 2},
	}
}

// Complete reports whether the grid has exactly one tile per cell.
func (m *Map) Complete() bool {
	return len(m.Tiles) == core.GridTiles
}

// TileAt returns the tile at grid position (col, row).
func (m *Map) TileAt(col, row int) (Tile, bool) {
	if col < 0 || col >= core.GridCols || row < 0 {
		return Tile{}, false
	}
	i := row*core.GridCols + col
	if i >= len(m.Tiles) {
		return Tile{}, false
	}
	return m.Tiles[i], true
}

// GoalTiles returns every goal tile in grid order.
func (m *Map) GoalTiles() []Tile {
	var goals []Tile
	for _, t := range m.Tiles {
		if t.IsGoal() {
			goals = append(goals, t)
		}
	}
	return goals
}

// SolidArea is the union of inflated rectangles around non-background
// tiles. It only drives the visual outline; collision uses the grid.
type SolidArea struct {
	rects []core.Rect
}

// solidRect is the overlay rectangle for one tile, in screen pixels
// (shifted down by the HUD).
func solidRect(t Tile) core.Rect {
	return core.NewRect(t.X()-3, t.Y()-3+core.HUDOffsetY, core.TileSize+6, core.TileSize+6)
}

func buildSolidArea(tiles []Tile) SolidArea {
	var a SolidArea
	for _, t := range tiles {
		if t.Type != TypeBackground {
			a.rects = append(a.rects, solidRect(t))
		}
	}
	return a
}

// Rects returns the rectangles making up the area.
func (a SolidArea) Rects() []core.Rect {
	return a.rects
}

// Contains reports whether the screen-pixel point lies inside the area.
func (a SolidArea) Contains(x, y int) bool {
	for _, r := range a.rects {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}

// Bounds returns the smallest rectangle enclosing the whole area.
func (a SolidArea) Bounds() core.Rect {
	if len(a.rects) == 0 {
		return core.Rect{}
	}
	minX, minY := a.rects[0].X, a.rects[0].Y
	maxX, maxY := a.rects[0].Right(), a.rects[0].Bottom()
	for _, r := range a.rects[1:] {
		minX = min(minX, r.X)
		minY = min(minY, r.Y)
		maxX = max(maxX, r.Right())
		maxY = max(maxY, r.Bottom())
	}
	return core.NewRect(minX, minY, maxX-minX, maxY-minY)
}
