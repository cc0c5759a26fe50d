// Package sim runs the per-tick player simulation: power-up decay, coin and
// goal checks, directional blocking, tilt and keyboard movement, hazard
// deaths and the death fade.
package sim

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/vovakirdan/tiltmaze/internal/collision"
	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/powerup"
	"github.com/vovakirdan/tiltmaze/internal/tilt"
)

// Player geometry and fade timing.
const (
	PlayerHalf  = 15
	PlayerSize  = 31
	FullOpacity = 255
	FadeTicks   = 85 // 255 / (255/75) ticks to fade out
)

// TiltSource provides the latest controller reading. *tilt.Channel
// implements it.
type TiltSource interface {
	Sample() tilt.Sample
}

// Player is one local player. Only the simulation goroutine mutates it.
type Player struct {
	Slot  core.PlayerSlot
	Name  string
	X, Y  int
	Snap  core.Point // tile under the player center
	Block collision.Flags

	Deaths  int
	Dead    bool
	Opacity int

	Power *powerup.Controller

	idle core.Color
	tilt TiltSource
	fade *gween.Tween
}

func newPlayer(slot core.PlayerSlot, name string, idle core.Color, power *powerup.Controller, src TiltSource) *Player {
	return &Player{
		Slot:    slot,
		Name:    name,
		Opacity: FullOpacity,
		Power:   power,
		idle:    idle,
		tilt:    src,
	}
}

// Bounds returns the collision box.
func (p *Player) Bounds() core.Rect {
	return core.NewRect(p.X-PlayerHalf, p.Y-PlayerHalf, PlayerSize, PlayerSize)
}

// Color returns the draw color, green while a power-up runs.
func (p *Player) Color() core.Color {
	return p.Power.Color(p.idle)
}

// Tilt returns the current controller reading, zero without a controller.
func (p *Player) Tilt() tilt.Sample {
	if p.tilt == nil {
		return tilt.Sample{}
	}
	return p.tilt.Sample()
}

// place moves the player to (x, y) alive and fully visible.
func (p *Player) place(pt core.Point) {
	p.X, p.Y = pt.X, pt.Y
	p.Snap = core.Point{X: p.X / core.TileSize, Y: p.Y / core.TileSize}
	p.Block = collision.Flags{}
	p.Dead = false
	p.Opacity = FullOpacity
	p.fade = nil
}

// kill starts the death fade.
func (p *Player) kill() {
	p.Dead = true
	p.fade = gween.New(FullOpacity, 0, FadeTicks, ease.Linear)
}

// stepFade advances the fade one tick and reports whether it finished.
func (p *Player) stepFade() bool {
	if p.fade == nil {
		p.Opacity = 0
		return true
	}
	v, done := p.fade.Update(1)
	p.Opacity = max(int(v), 0)
	if done {
		p.Opacity = 0
	}
	return done
}

// move applies tilt and keyboard input with the given step, honouring the
// blocking flags probed this tick.
func (p *Player) move(in core.InputFrame, step, threshold int) {
	dx, dy := tilt.Steer(p.Tilt(), threshold)
	switch {
	case dx > 0 && !p.Block.Right:
		p.X += step
	case dx < 0 && !p.Block.Left:
		p.X -= step
	}
	switch {
	case dy > 0 && !p.Block.Down:
		p.Y += step
	case dy < 0 && !p.Block.Up:
		p.Y -= step
	}

	if in.Has(core.ActionUp) && !p.Block.Up {
		p.Y -= step
	}
	if in.Has(core.ActionDown) && !p.Block.Down {
		p.Y += step
	}
	if in.Has(core.ActionLeft) && !p.Block.Left {
		p.X -= step
	}
	if in.Has(core.ActionRight) && !p.Block.Right {
		p.X += step
	}
}

// wrap moves a player that left the playfield to the opposite edge.
func (p *Player) wrap() {
	switch {
	case p.X > core.FieldW:
		p.X = 0
	case p.X < 0:
		p.X = core.FieldW
	}
	switch {
	case p.Y > core.FieldH:
		p.Y = 0
	case p.Y < 0:
		p.Y = core.FieldH
	}
}
