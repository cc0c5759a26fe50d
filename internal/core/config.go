package core

// Playfield dimensions in pixels. The level grid is 20×15 tiles of 40px.
const (
	TileSize   = 40
	GridCols   = 20
	GridRows   = 15
	GridTiles  = GridCols * GridRows
	FieldW     = GridCols * TileSize // 800
	FieldH     = GridRows * TileSize // 600
	HUDOffsetY = 22                  // vertical offset of the playfield below the status bar
)

// RuntimeConfig contains configuration passed to a simulation session.
type RuntimeConfig struct {
	TickRate int   // Simulation ticks per second (default 60)
	Seed     int64 // RNG seed for deterministic power-up rolls
}

// DefaultConfig returns a RuntimeConfig with sensible defaults.
func DefaultConfig() RuntimeConfig {
	return RuntimeConfig{
		TickRate: 60,
		Seed:     0, // 0 means use current time in platform layer
	}
}
