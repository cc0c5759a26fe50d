// Package hazard moves level hazards back and forth between their two
// endpoints.
package hazard

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/level"
)

// Mover ping-pongs one hazard between the centers of its start and end
// tiles. Each Update advances Speed*multiplier pixels along the path.
type Mover struct {
	desc     level.HazardDescriptor
	from, to core.Point
	dist     float32
	tween    *gween.Tween
	pos      core.Point
	speed    float64
}

// New places a hazard at the center of its start tile.
func New(d level.HazardDescriptor, speed float64) *Mover {
	from := tileCenter(d.Start)
	to := tileCenter(d.End)
	dist := float32(math.Hypot(float64(to.X-from.X), float64(to.Y-from.Y)))
	return &Mover{
		desc:  d,
		from:  from,
		to:    to,
		dist:  dist,
		tween: gween.New(0, dist, dist, ease.Linear),
		pos:   from,
		speed: speed,
	}
}

// FromLevel builds movers for every descriptor of m.
func FromLevel(m *level.Map, speed float64) []*Mover {
	movers := make([]*Mover, 0, len(m.Hazards))
	for _, d := range m.Hazards {
		movers = append(movers, New(d, speed))
	}
	return movers
}

func tileCenter(p core.Point) core.Point {
	return core.Point{
		X: p.X*core.TileSize + core.TileSize/2,
		Y: p.Y*core.TileSize + core.TileSize/2,
	}
}

// Descriptor returns the level data the hazard was built from.
func (m *Mover) Descriptor() level.HazardDescriptor { return m.desc }

// Position returns the hazard center in pixels.
func (m *Mover) Position() core.Point { return m.pos }

// Bounds returns the hazard's collision box.
func (m *Mover) Bounds() core.Rect {
	return core.CenteredRect(m.pos.X, m.pos.Y, level.HazardSize, level.HazardSize)
}

// Speed returns the current multiplier.
func (m *Mover) Speed() float64 { return m.speed }

// SetSpeed sets the multiplier applied to the descriptor speed.
func (m *Mover) SetSpeed(v float64) { m.speed = v }

// Update advances the hazard one tick, reversing at either endpoint.
func (m *Mover) Update() {
	if m.dist == 0 {
		return
	}
	step := float32(m.desc.Speed * m.speed)
	if step <= 0 {
		return
	}
	travelled, done := m.tween.Update(step)
	f := float64(travelled / m.dist)
	m.pos = core.Point{
		X: m.from.X + int(math.Round(f*float64(m.to.X-m.from.X))),
		Y: m.from.Y + int(math.Round(f*float64(m.to.Y-m.from.Y))),
	}
	if done {
		m.pos = m.to
		m.from, m.to = m.to, m.from
		m.tween.Reset()
	}
}
