// Package powerup implements the timed effect granted by collecting a coin.
package powerup

import (
	"time"

	"github.com/vovakirdan/tiltmaze/internal/core"
)

// Kind is the active power-up.
type Kind int

const (
	None Kind = iota
	SpeedBoost
	Immunity
	SlowHazards
	MinusDeaths
	kindCount
)

// String returns the name shown in the HUD.
func (k Kind) String() string {
	switch k {
	case None:
		return "None"
	case SpeedBoost:
		return "Speed boost"
	case Immunity:
		return "Immunity"
	case SlowHazards:
		return "Slow hazards"
	case MinusDeaths:
		return "Minus deaths"
	default:
		return "?"
	}
}

// PoweredColor is the player color while any power-up runs.
const PoweredColor = core.ColorGreen

// Config holds effect durations and magnitudes.
type Config struct {
	Duration        time.Duration // effect lifetime
	MessageDuration time.Duration // HUD banner lifetime
	MoveStep        int           // normal movement step in pixels
	BoostStep       int           // movement step under SpeedBoost
	SlowHazardSpeed float64       // hazard multiplier under SlowHazards
	BaseHazardSpeed float64       // hazard multiplier otherwise
}

// DefaultConfig returns the stock effect settings.
func DefaultConfig() Config {
	return Config{
		Duration:        5 * time.Second,
		MessageDuration: time.Second,
		MoveStep:        1,
		BoostStep:       2,
		SlowHazardSpeed: 0.1,
		BaseHazardSpeed: 0.7,
	}
}

// Controller tracks one player's power-up. At most one is active; a new
// activation restarts the timer instead of stacking.
type Controller struct {
	cfg Config
	rng *RNG

	active        Kind
	endsAt        time.Time
	messageEndsAt time.Time
	minusApplied  bool
}

// NewController creates an idle controller.
func NewController(cfg Config, seed int64) *Controller {
	return &Controller{cfg: cfg, rng: NewRNG(seed)}
}

// Config returns the controller's settings.
func (c *Controller) Config() Config { return c.cfg }

// Activate picks a kind uniformly at random and starts it.
func (c *Controller) Activate(now time.Time) Kind {
	k := Kind(1 + c.rng.Intn(int(kindCount)-1))
	c.ActivateKind(now, k)
	return k
}

// ActivateKind starts k at now, replacing any active power-up.
func (c *Controller) ActivateKind(now time.Time, k Kind) {
	c.active = k
	c.endsAt = now.Add(c.cfg.Duration)
	c.messageEndsAt = now.Add(c.cfg.MessageDuration)
	c.minusApplied = false
}

// Expire ends the active power-up once now reaches its deadline and
// reports whether it did. Callers restore hazards to BaseHazardSpeed.
func (c *Controller) Expire(now time.Time) bool {
	if c.active == None || now.Before(c.endsAt) {
		return false
	}
	c.active = None
	c.minusApplied = false
	return true
}

// Reset drops any active power-up without reporting expiry.
func (c *Controller) Reset() {
	c.active = None
	c.minusApplied = false
	c.endsAt = time.Time{}
	c.messageEndsAt = time.Time{}
}

// Active returns the running kind, or None.
func (c *Controller) Active() Kind { return c.active }

// Remaining returns the time left on the active power-up.
func (c *Controller) Remaining(now time.Time) time.Duration {
	if c.active == None {
		return 0
	}
	return max(c.endsAt.Sub(now), 0)
}

// MessageVisible reports whether the activation banner is still shown.
func (c *Controller) MessageVisible(now time.Time) bool {
	return c.active != None && now.Before(c.messageEndsAt)
}

// Step returns the movement step for this tick.
func (c *Controller) Step() int {
	if c.active == SpeedBoost {
		return c.cfg.BoostStep
	}
	return c.cfg.MoveStep
}

// HazardSpeed returns the forced hazard multiplier while SlowHazards runs.
func (c *Controller) HazardSpeed() (float64, bool) {
	if c.active == SlowHazards {
		return c.cfg.SlowHazardSpeed, true
	}
	return 0, false
}

// Immune reports whether hazard contact is ignored.
func (c *Controller) Immune() bool { return c.active == Immunity }

// HazardHit returns the death-count delta for a hazard collision. The
// first hit under MinusDeaths in an activation returns -1; any other hit +1.
func (c *Controller) HazardHit() int {
	if c.active == MinusDeaths && !c.minusApplied {
		c.minusApplied = true
		return -1
	}
	return 1
}

// Color returns the player's draw color given its idle color.
func (c *Controller) Color(idle core.Color) core.Color {
	if c.active == None {
		return idle
	}
	return PoweredColor
}
