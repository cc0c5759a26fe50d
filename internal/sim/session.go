package sim

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tiltmaze/internal/collision"
	"github.com/vovakirdan/tiltmaze/internal/completion"
	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/hazard"
	"github.com/vovakirdan/tiltmaze/internal/level"
	"github.com/vovakirdan/tiltmaze/internal/powerup"
	"github.com/vovakirdan/tiltmaze/internal/tilt"
)

// MaxPlayers is the number of local control sets.
const MaxPlayers = 2

// Config configures a Session.
type Config struct {
	Players       int      // 1 or 2
	Names         []string // optional, per slot
	TiltThreshold int
	PowerUps      powerup.Config
	Seed          int64
}

// Session owns the players, the current level map and its hazards. All
// methods must be called from one goroutine.
type Session struct {
	cfg      Config
	progress *completion.Sync
	logger   *log.Logger

	players []*Player
	level   *level.Map
	coins   []bool // collected flags, parallel to level.Coins
	hazards []*hazard.Mover
	ticks   uint64
}

var playerColors = [MaxPlayers]core.Color{core.ColorRed, core.ColorBlue}

// NewSession creates a session driven by progress. tilts[i], when present
// and non-nil, feeds player i+1.
func NewSession(cfg Config, progress *completion.Sync, tilts []TiltSource, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg.Players = core.Clamp(cfg.Players, 1, MaxPlayers)
	if cfg.TiltThreshold <= 0 {
		cfg.TiltThreshold = tilt.DefaultThreshold
	}
	if cfg.PowerUps == (powerup.Config{}) {
		cfg.PowerUps = powerup.DefaultConfig()
	}

	s := &Session{cfg: cfg, progress: progress, logger: logger}
	for i := range cfg.Players {
		slot := core.PlayerSlot(i + 1)
		name := slot.String()
		if i < len(cfg.Names) && cfg.Names[i] != "" {
			name = cfg.Names[i]
		}
		var src TiltSource
		if i < len(tilts) {
			src = tilts[i]
		}
		power := powerup.NewController(cfg.PowerUps, cfg.Seed+int64(i))
		s.players = append(s.players, newPlayer(slot, name, playerColors[i], power, src))
	}
	return s
}

// Start loads level n and places every player on its spawn point.
func (s *Session) Start(n int) {
	s.enter(s.progress.Begin(n))
}

// enter swaps in a freshly loaded map. Maps are never modified in place.
func (s *Session) enter(m *level.Map) {
	s.level = m
	s.coins = make([]bool, len(m.Coins))
	s.hazards = hazard.FromLevel(m, s.cfg.PowerUps.BaseHazardSpeed)
	for _, p := range s.players {
		p.place(m.Spawn)
	}
	s.logger.Info("level loaded", "level", s.progress.Level(), "title", m.Title,
		"coins", len(m.Coins), "hazards", len(m.Hazards))
}

// Tick advances the simulation by one frame.
func (s *Session) Tick(now time.Time, input core.MultiInputFrame) {
	s.ticks++
	if s.progress.Drain() {
		s.enter(s.progress.Map())
	}

	switch s.progress.Phase() {
	case completion.PhaseTitleDelay, completion.PhaseFinished:
		return
	}

	for _, p := range s.players {
		s.tickPlayer(now, p, input.Player(p.Slot))
		if s.progress.Map() != s.level {
			// Completion advanced the level mid-tick.
			s.enter(s.progress.Map())
			return
		}
	}
	for _, h := range s.hazards {
		h.Update()
	}
}

func (s *Session) tickPlayer(now time.Time, p *Player, in core.InputFrame) {
	if p.Power.Expire(now) {
		s.setHazardSpeed(s.cfg.PowerUps.BaseHazardSpeed)
		s.logger.Debug("power-up expired", "player", p.Name)
	}
	p.Snap = core.Point{X: p.X / core.TileSize, Y: p.Y / core.TileSize}

	box := p.Bounds()
	for i, c := range s.level.Coins {
		if !s.coins[i] && box.Intersects(c.Bounds()) {
			s.coins[i] = true
			kind := p.Power.Activate(now)
			s.logger.Info("power-up activated", "player", p.Name, "kind", kind)
		}
	}

	if len(s.level.Tiles) > 0 && s.AllCoinsCollected() && !s.progress.Notified() &&
		collision.TouchesGoal(box, s.level.Tiles) {
		if s.progress.Trigger(p.Deaths) {
			return
		}
	}

	p.Block = collision.Probe(s.level, p.X, p.Y)

	if p.Dead {
		if p.stepFade() {
			s.respawn(p)
		}
	} else {
		p.move(in, p.Power.Step(), s.cfg.TiltThreshold)
	}

	if v, ok := p.Power.HazardSpeed(); ok {
		s.setHazardSpeed(v)
	}

	p.wrap()

	if p.Dead || p.Power.Immune() {
		return
	}
	box = p.Bounds()
	for _, h := range s.hazards {
		if box.Intersects(h.Bounds()) {
			p.Deaths += p.Power.HazardHit()
			p.kill()
			s.logger.Debug("player hit hazard", "player", p.Name, "hazard", h.Descriptor().ID, "deaths", p.Deaths)
			return
		}
	}
}

// respawn returns p to the spawn point. Coins are shared, so every coin
// becomes collectable again.
func (s *Session) respawn(p *Player) {
	p.place(s.level.Spawn)
	clear(s.coins)
}

func (s *Session) setHazardSpeed(v float64) {
	for _, h := range s.hazards {
		h.SetSpeed(v)
	}
}

// Close releases tilt sources that need closing.
func (s *Session) Close() error {
	var first error
	for _, p := range s.players {
		if c, ok := p.tilt.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// Players returns the local players.
func (s *Session) Players() []*Player { return s.players }

// Level returns the current map.
func (s *Session) Level() *level.Map { return s.level }

// LevelNumber returns the level counter.
func (s *Session) LevelNumber() int { return s.progress.Level() }

// Phase returns the progression phase.
func (s *Session) Phase() completion.Phase { return s.progress.Phase() }

// Waiting reports whether the session waits for remote players.
func (s *Session) Waiting() bool { return s.progress.Waiting() }

// Hazards returns the hazards of the current level.
func (s *Session) Hazards() []*hazard.Mover { return s.hazards }

// CoinCollected reports whether coin i of the current level was taken.
func (s *Session) CoinCollected(i int) bool {
	return i >= 0 && i < len(s.coins) && s.coins[i]
}

// AllCoinsCollected reports whether no coin is left.
func (s *Session) AllCoinsCollected() bool {
	for _, c := range s.coins {
		if !c {
			return false
		}
	}
	return true
}

// Ticks returns the number of ticks run.
func (s *Session) Ticks() uint64 { return s.ticks }

// TotalDeaths sums deaths over all players.
func (s *Session) TotalDeaths() int {
	n := 0
	for _, p := range s.players {
		n += p.Deaths
	}
	return n
}
