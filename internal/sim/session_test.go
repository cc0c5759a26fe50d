package sim

import (
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/tiltmaze/internal/completion"
	"github.com/vovakirdan/tiltmaze/internal/core"
	"github.com/vovakirdan/tiltmaze/internal/level"
	"github.com/vovakirdan/tiltmaze/internal/powerup"
	"github.com/vovakirdan/tiltmaze/internal/tilt"
)

// levelSpec describes a test level: cells overrides a floor grid, hazards
// are raw hazard lines.
type levelSpec struct {
	props   string
	cells   map[core.Point]byte
	hazards []string
}

func (ls levelSpec) build() *level.Map {
	lines := make([]string, 0, 19+len(ls.hazards))
	for row := range core.GridRows {
		line := []byte(strings.Repeat("1", core.GridCols))
		for p, c := range ls.cells {
			if p.Y == row {
				line[p.X] = c
			}
		}
		lines = append(lines, string(line))
	}
	lines = append(lines, "", "", "", "")
	lines = append(lines, ls.hazards...)
	return level.Parse([]byte(ls.props), []byte(strings.Join(lines, "\n")))
}

type mapLoader map[int]*level.Map

func (l mapLoader) Load(n int) (*level.Map, error) {
	if m, ok := l[n]; ok {
		return m, nil
	}
	return level.DefaultMap(), level.ErrResourceMissing
}

type fakeTilt struct{ s tilt.Sample }

func (f *fakeTilt) Sample() tilt.Sample { return f.s }

type harness struct {
	s      *Session
	timers []func()
	now    time.Time
}

func newHarness(t *testing.T, players int, levels mapLoader, tilts ...TiltSource) *harness {
	t.Helper()
	h := &harness{now: time.Unix(1_700_000_000, 0)}
	progress := completion.New(completion.Config{FinalLevel: 3}, completion.Options{
		Loader: levels,
		After:  func(_ time.Duration, f func()) { h.timers = append(h.timers, f) },
	})
	h.s = NewSession(Config{Players: players, Seed: 1}, progress, tilts, nil)
	h.s.Start(1)
	h.play()
	return h
}

// play fires pending title timers and drains them with a tick.
func (h *harness) play() {
	for _, f := range h.timers {
		f()
	}
	h.timers = nil
	h.tick(core.NewMultiInputFrame())
}

func (h *harness) tick(in core.MultiInputFrame) {
	h.now = h.now.Add(time.Second / 60)
	h.s.Tick(h.now, in)
}

func (h *harness) hold(slot core.PlayerSlot, a core.Action, ticks int) {
	for range ticks {
		in := core.NewMultiInputFrame()
		in.Set(slot, a)
		h.tick(in)
	}
}

func spawnAt55() string { return "spawn_point=5,5\n" }

func TestKeyboardMovement(t *testing.T) {
	h := newHarness(t, 1, mapLoader{1: levelSpec{props: spawnAt55()}.build()})
	p := h.s.Players()[0]

	h.hold(core.Player1, core.ActionRight, 3)
	h.hold(core.Player1, core.ActionUp, 2)
	if p.X != 223 || p.Y != 218 {
		t.Errorf("position = (%d,%d), expected (223,218)", p.X, p.Y)
	}
}

func TestWallBlocksMovement(t *testing.T) {
	wall := levelSpec{props: spawnAt55(), cells: map[core.Point]byte{{X: 6, Y: 5}: '0'}}
	h := newHarness(t, 1, mapLoader{1: wall.build()})
	p := h.s.Players()[0]

	h.hold(core.Player1, core.ActionRight, 10)
	if p.X != 224 {
		t.Errorf("X = %d, expected to stop at 224", p.X)
	}
	if !p.Block.Right {
		t.Error("Block.Right should be set against the wall")
	}
}

func TestTiltMovement(t *testing.T) {
	src := &fakeTilt{s: tilt.Sample{X: -500, Y: 50}}
	h := newHarness(t, 1, mapLoader{1: levelSpec{props: spawnAt55()}.build()}, src)
	p := h.s.Players()[0]
	x0, y0 := p.X, p.Y

	h.tick(core.NewMultiInputFrame())
	if p.X != x0+1 || p.Y != y0 {
		t.Errorf("tilt x=-500 moved to (%d,%d), expected (%d,%d)", p.X, p.Y, x0+1, y0)
	}

	src.s = tilt.Sample{X: 0, Y: 101}
	h.tick(core.NewMultiInputFrame())
	if p.Y != y0+1 {
		t.Errorf("tilt y=101 moved Y to %d, expected %d", p.Y, y0+1)
	}
}

func TestSpeedBoostDoublesStep(t *testing.T) {
	h := newHarness(t, 1, mapLoader{1: levelSpec{props: spawnAt55()}.build()})
	p := h.s.Players()[0]
	p.Power.ActivateKind(h.now, powerup.SpeedBoost)

	h.hold(core.Player1, core.ActionLeft, 2)
	if p.X != 216 {
		t.Errorf("X = %d, expected 216", p.X)
	}
	if p.Color() != powerup.PoweredColor {
		t.Errorf("Color() = %v while powered", p.Color())
	}

	h.now = h.now.Add(5 * time.Second)
	h.hold(core.Player1, core.ActionLeft, 1)
	if p.X != 215 {
		t.Errorf("X = %d after expiry, expected 215", p.X)
	}
	if p.Color() != core.ColorRed {
		t.Errorf("Color() = %v after expiry, expected red", p.Color())
	}
}

func TestCoinActivatesPowerUp(t *testing.T) {
	lvl := levelSpec{props: spawnAt55() + "coins=6,5\n"}.build()
	h := newHarness(t, 1, mapLoader{1: lvl})
	p := h.s.Players()[0]

	if !h.s.CoinCollected(0) {
		t.Fatal("coin overlapping the spawn should be collected on the first tick")
	}
	if p.Power.Active() == powerup.None {
		t.Error("collecting a coin should start a power-up")
	}
	if !h.s.AllCoinsCollected() {
		t.Error("AllCoinsCollected() = false")
	}
}

func TestHazardDeathFadeAndRespawn(t *testing.T) {
	lvl := levelSpec{
		props:   spawnAt55(),
		hazards: []string{"1-1-5,5-5,8-3-false-true"},
	}.build()
	h := newHarness(t, 1, mapLoader{1: lvl})
	p := h.s.Players()[0]

	if !p.Dead || p.Deaths != 1 {
		t.Fatalf("dead=%v deaths=%d, expected a death on the first tick", p.Dead, p.Deaths)
	}

	h.hold(core.Player1, core.ActionRight, 1)
	if p.X != 220 {
		t.Error("dead players must not move")
	}
	if p.Opacity != 252 {
		t.Errorf("Opacity = %d after one fade tick, expected 252", p.Opacity)
	}

	for range FadeTicks - 1 {
		h.tick(core.NewMultiInputFrame())
	}
	if p.Dead || p.Opacity != FullOpacity {
		t.Errorf("dead=%v opacity=%d, expected respawned", p.Dead, p.Opacity)
	}
	if p.X != 220 || p.Y != 220 {
		t.Errorf("respawned at (%d,%d), expected spawn", p.X, p.Y)
	}
	if p.Deaths != 1 {
		t.Errorf("Deaths = %d, expected 1", p.Deaths)
	}
}

func TestOverlappingHazardsKillOnce(t *testing.T) {
	lvl := levelSpec{
		props: spawnAt55(),
		hazards: []string{
			"1-1-5,5-5,8-3-false-true",
			"2-1-5,5-8,5-3-false-true",
		},
	}.build()
	h := newHarness(t, 1, mapLoader{1: lvl})

	if d := h.s.Players()[0].Deaths; d != 1 {
		t.Errorf("Deaths = %d, expected 1", d)
	}
}

func TestHazardPowerUps(t *testing.T) {
	lvl := levelSpec{
		props:   spawnAt55() + "coins=null\n",
		hazards: []string{"1-1-5,5-5,8-3-false-true"},
	}.build()

	tests := []struct {
		name   string
		kind   powerup.Kind
		deaths int
		dead   bool
	}{
		{"immunity skips the check", powerup.Immunity, 0, false},
		{"minus deaths decrements", powerup.MinusDeaths, -1, true},
		{"speed boost still dies", powerup.SpeedBoost, 1, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			progress := completion.New(completion.Config{FinalLevel: 3}, completion.Options{
				Loader: mapLoader{1: lvl},
				After:  func(time.Duration, func()) {},
			})
			s := NewSession(Config{Players: 1}, progress, nil, nil)
			s.Start(1)
			now := time.Unix(0, 0)
			s.Players()[0].Power.ActivateKind(now, tc.kind)

			// Title delay is never released here; drive the player directly.
			s.tickPlayer(now, s.Players()[0], core.NewInputFrame())

			p := s.Players()[0]
			if p.Deaths != tc.deaths || p.Dead != tc.dead {
				t.Errorf("deaths=%d dead=%v, expected %d %v", p.Deaths, p.Dead, tc.deaths, tc.dead)
			}
		})
	}
}

func TestSlowHazardsAndRestore(t *testing.T) {
	lvl := levelSpec{
		props:   "spawn_point=1,1\n",
		hazards: []string{"1-1-10,10-10,13-3-false-false"},
	}.build()
	h := newHarness(t, 1, mapLoader{1: lvl})
	p := h.s.Players()[0]
	hz := h.s.Hazards()[0]

	p.Power.ActivateKind(h.now, powerup.SlowHazards)
	h.tick(core.NewMultiInputFrame())
	if hz.Speed() != 0.1 {
		t.Errorf("hazard speed = %v, expected 0.1", hz.Speed())
	}

	h.now = h.now.Add(5 * time.Second)
	h.tick(core.NewMultiInputFrame())
	if hz.Speed() != 0.7 {
		t.Errorf("hazard speed = %v after expiry, expected 0.7", hz.Speed())
	}
}

func TestWrapAround(t *testing.T) {
	h := newHarness(t, 1, mapLoader{1: levelSpec{props: "spawn_point=19,14\n"}.build()})
	p := h.s.Players()[0]

	p.X = core.FieldW
	h.hold(core.Player1, core.ActionRight, 1)
	if p.X != 0 {
		t.Errorf("X = %d, expected wrap to 0", p.X)
	}

	p.Y = 0
	h.hold(core.Player1, core.ActionUp, 1)
	if p.Y != core.FieldH {
		t.Errorf("Y = %d, expected wrap to %d", p.Y, core.FieldH)
	}
}

func TestGoalAdvancesLevel(t *testing.T) {
	goal := levelSpec{props: "spawn_point=6,5\n", cells: map[core.Point]byte{{X: 6, Y: 5}: '3'}}
	next := levelSpec{props: "spawn_point=2,2\n"}
	h := newHarness(t, 1, mapLoader{1: goal.build(), 2: next.build()})
	p := h.s.Players()[0]

	if h.s.LevelNumber() != 2 {
		t.Fatalf("LevelNumber() = %d, expected 2", h.s.LevelNumber())
	}
	if h.s.Phase() != completion.PhaseTitleDelay {
		t.Errorf("Phase() = %v, expected TitleDelay", h.s.Phase())
	}
	if p.X != 100 || p.Y != 100 {
		t.Errorf("player at (%d,%d), expected next spawn (100,100)", p.X, p.Y)
	}

	h.hold(core.Player1, core.ActionRight, 5)
	if p.X != 100 {
		t.Error("players must not move during the title card")
	}

	h.play()
	if h.s.Phase() != completion.PhasePlaying {
		t.Errorf("Phase() = %v, expected Playing", h.s.Phase())
	}
}

func TestGoalRequiresAllCoins(t *testing.T) {
	goal := levelSpec{
		props: "spawn_point=6,5\ncoins=15,12\n",
		cells: map[core.Point]byte{{X: 6, Y: 5}: '3'},
	}
	h := newHarness(t, 1, mapLoader{1: goal.build()})

	h.tick(core.NewMultiInputFrame())
	if h.s.LevelNumber() != 1 {
		t.Errorf("LevelNumber() = %d, expected to stay on 1", h.s.LevelNumber())
	}
}

func TestTwoPlayersIndependentControls(t *testing.T) {
	h := newHarness(t, 2, mapLoader{1: levelSpec{props: spawnAt55()}.build()})
	p1, p2 := h.s.Players()[0], h.s.Players()[1]

	h.hold(core.Player2, core.ActionDown, 3)
	if p1.Y != 220 || p2.Y != 223 {
		t.Errorf("p1.Y=%d p2.Y=%d, expected 220 and 223", p1.Y, p2.Y)
	}
	if p1.Color() != core.ColorRed || p2.Color() != core.ColorBlue {
		t.Errorf("colors = %v %v", p1.Color(), p2.Color())
	}
}

func TestRespawnResetsSharedCoins(t *testing.T) {
	lvl := levelSpec{props: spawnAt55() + "coins=6,5\n"}.build()
	h := newHarness(t, 2, mapLoader{1: lvl})
	p2 := h.s.Players()[1]

	if !h.s.CoinCollected(0) {
		t.Fatal("coin should be collected at spawn")
	}
	p2.kill()
	for range FadeTicks {
		h.tick(core.NewMultiInputFrame())
	}
	if p2.Dead {
		t.Fatal("player 2 should have respawned")
	}
	if h.s.CoinCollected(0) {
		t.Error("a respawn should make every coin collectable again")
	}

	// Player 1 still sits on the coin.
	h.tick(core.NewMultiInputFrame())
	if !h.s.CoinCollected(0) {
		t.Error("coin should be collected again")
	}
}
