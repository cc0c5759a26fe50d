// Package level parses level resources into immutable maps: the tile grid,
// spawn point, coins, hazard descriptors and the solid-area overlay.
package level

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/tiltmaze/internal/core"
)

// Tile types with fixed meaning. Other digits are floor variants.
const (
	TypeBackground = 0
	TypeGoal       = 3
)

// Hazard and coin box sizes in pixels.
const (
	CoinSize   = 20
	HazardSize = 20
)

// Error kinds. Warnings wrap ErrParse; ErrFieldIndex is the one parse
// failure that is dropped without a warning.
var (
	ErrResourceMissing = errors.New("level: resource missing")
	ErrParse           = errors.New("level: parse warning")
	ErrFieldIndex      = errors.New("level: field index out of range")
)

// Tile is one grid cell.
type Tile struct {
	Col, Row int
	Type     int
}

// X returns the tile's left edge in pixels.
func (t Tile) X() int { return t.Col * core.TileSize }

// Y returns the tile's top edge in pixels.
func (t Tile) Y() int { return t.Row * core.TileSize }

// Bounds returns the tile's pixel rectangle.
func (t Tile) Bounds() core.Rect {
	return core.NewRect(t.X(), t.Y(), core.TileSize, core.TileSize)
}

// IsGoal reports whether touching this tile can complete the level.
func (t Tile) IsGoal() bool { return t.Type == TypeGoal }

// Coin is a collectible at a pixel position. Collection state is owned by
// the simulation, not the map.
type Coin struct {
	X, Y int
}

// Bounds returns the coin's pixel rectangle.
func (c Coin) Bounds() core.Rect {
	return core.CenteredRect(c.X, c.Y, CoinSize, CoinSize)
}

// HazardDescriptor describes one moving hazard. Start and End are tile
// coordinates; the motion law belongs to the hazard implementation.
type HazardDescriptor struct {
	ID      int
	GroupID int
	Start   core.Point
	End     core.Point
	Speed   float64
	FlagA   bool
	FlagB   bool
}

// Warning is a non-fatal problem found while parsing.
type Warning struct {
	Source string // "properties", "grid" or "hazards"
	Line   int    // 1-based line in the source, 0 if not line-oriented
	Err    error
}

func (w Warning) Error() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s line %d: %v", w.Source, w.Line, w.Err)
	}
	return fmt.Sprintf("%s: %v", w.Source, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// newWarning wraps msg so that errors.Is(w, ErrParse) holds.
func newWarning(source string, line int, format string, args ...any) Warning {
	return Warning{
		Source: source,
		Line:   line,
		Err:    fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...)),
	}
}
