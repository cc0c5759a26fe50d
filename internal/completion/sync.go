// Package completion advances a player through levels once the goal is
// reached: it reports the final score, waits on the multiplayer barrier off
// the simulation goroutine, and delays the switch back to play behind a
// title card.
package completion

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tiltmaze/internal/level"
)

// DefaultTitleDelay is how long the level title is shown before play resumes.
const DefaultTitleDelay = 1750 * time.Millisecond

// Phase is the level progression state.
type Phase int

const (
	PhasePlaying            Phase = iota
	PhaseNotifying                // goal reached, reporting
	PhaseWaitingForPeers          // barrier call in flight
	PhaseTransitioningLocal       // solo advance in progress
	PhaseTitleDelay               // next level loaded, title card showing
	PhaseFinished                 // final level completed
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhasePlaying:
		return "Playing"
	case PhaseNotifying:
		return "Notifying"
	case PhaseWaitingForPeers:
		return "WaitingForPeers"
	case PhaseTransitioningLocal:
		return "TransitioningLocal"
	case PhaseTitleDelay:
		return "TitleDelay"
	case PhaseFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// ScoreReporter sends the final death count. *highscore.Client implements it.
type ScoreReporter interface {
	ReportHighscore(ctx context.Context, user string, deaths int) (string, error)
}

// PeerSync is the multiplayer barrier. *netsync.Client implements it.
type PeerSync interface {
	ReportLevelCompletion(ctx context.Context, level int) (bool, error)
	IsConnected() bool
}

// LevelLoader loads a level by number. *level.Loader implements it.
type LevelLoader interface {
	Load(n int) (*level.Map, error)
}

// Config holds progression settings.
type Config struct {
	Username      string
	FinalLevel    int
	TitleDelay    time.Duration
	ReportTimeout time.Duration // bound on the blocking score report
}

// Options wires the collaborators. Scores and Peers may be nil.
type Options struct {
	Loader LevelLoader
	Scores ScoreReporter
	Peers  PeerSync
	Logger *log.Logger

	// After schedules f once d has elapsed. Defaults to time.AfterFunc.
	After func(d time.Duration, f func())
}

type event interface{ completionEvent() }

type peerResult struct {
	level        int
	allCompleted bool
	err          error
}

type titleElapsed struct {
	level int
}

func (peerResult) completionEvent()   {}
func (titleElapsed) completionEvent() {}

// Sync is the level progression state machine. All methods except the
// background tasks it spawns must be called from the simulation goroutine;
// background results are posted to a queue and applied by Drain.
type Sync struct {
	cfg    Config
	loader LevelLoader
	scores ScoreReporter
	peers  PeerSync
	logger *log.Logger

	events chan event
	after  func(d time.Duration, f func())

	phase    Phase
	level    int
	levelMap *level.Map
	notified bool
	waiting  bool
	advances int
}

// New creates a Sync. Call Begin to load the first level.
func New(cfg Config, opts Options) *Sync {
	if cfg.TitleDelay <= 0 {
		cfg.TitleDelay = DefaultTitleDelay
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = 5 * time.Second
	}
	if opts.Loader == nil {
		opts.Loader = level.NewLoader(nil, opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.After == nil {
		opts.After = func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		}
	}
	return &Sync{
		cfg:    cfg,
		loader: opts.Loader,
		scores: opts.Scores,
		peers:  opts.Peers,
		logger: opts.Logger,
		events: make(chan event, 16),
		after:  opts.After,
	}
}

// Begin jumps to level n, showing its title card. Any delayed commit
// scheduled for a previous level is suppressed.
func (s *Sync) Begin(n int) *level.Map {
	s.load(n)
	return s.levelMap
}

// Phase returns the current phase.
func (s *Sync) Phase() Phase { return s.phase }

// Level returns the level counter.
func (s *Sync) Level() int { return s.level }

// Map returns the current level map. It is replaced, never mutated, on
// every level change.
func (s *Sync) Map() *level.Map { return s.levelMap }

// Notified reports whether completion of the current level was already
// triggered.
func (s *Sync) Notified() bool { return s.notified }

// Waiting reports whether a barrier call is in flight.
func (s *Sync) Waiting() bool { return s.waiting }

// Advances returns how many times the level counter moved forward.
func (s *Sync) Advances() int { return s.advances }

// Multiplayer reports whether completions go through the barrier.
func (s *Sync) Multiplayer() bool {
	return s.peers != nil && s.peers.IsConnected()
}

// Trigger runs the completion protocol for the current level. It returns
// false without doing anything if completion was already triggered.
func (s *Sync) Trigger(deaths int) bool {
	if s.notified || s.phase == PhaseFinished {
		return false
	}
	s.notified = true
	s.phase = PhaseNotifying
	completed := s.level
	s.logger.Info("level completed", "level", completed, "deaths", deaths)

	if completed >= s.cfg.FinalLevel {
		s.reportScore(deaths)
	}

	if s.Multiplayer() {
		s.waiting = true
		s.phase = PhaseWaitingForPeers
		go s.awaitPeers(completed)
		return true
	}

	s.phase = PhaseTransitioningLocal
	s.advance()
	return true
}

// reportScore blocks on the score backend. Failures are logged and
// progression continues.
func (s *Sync) reportScore(deaths int) {
	if s.scores == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReportTimeout)
	defer cancel()
	reply, err := s.scores.ReportHighscore(ctx, s.cfg.Username, deaths)
	if err != nil {
		s.logger.Error("cannot report highscore", "user", s.cfg.Username, "deaths", deaths, "error", err)
		return
	}
	s.logger.Info("highscore reported", "user", s.cfg.Username, "deaths", deaths, "reply", reply)
}

func (s *Sync) awaitPeers(completed int) {
	ok, err := s.peers.ReportLevelCompletion(context.Background(), completed)
	s.events <- peerResult{level: completed, allCompleted: ok, err: err}
}

// Drain applies queued background results. It is called once per tick and
// reports whether the level map was replaced.
func (s *Sync) Drain() bool {
	changed := false
	for {
		select {
		case evt := <-s.events:
			if s.apply(evt) {
				changed = true
			}
		default:
			return changed
		}
	}
}

func (s *Sync) apply(evt event) bool {
	switch e := evt.(type) {
	case peerResult:
		if !s.waiting || e.level != s.level {
			s.logger.Debug("ignoring stale peer result", "level", e.level, "current", s.level)
			return false
		}
		s.waiting = false
		switch {
		case e.err != nil:
			s.logger.Warn("level sync failed, continuing solo", "level", e.level, "error", e.err)
			s.phase = PhaseTransitioningLocal
		case !e.allCompleted:
			s.logger.Warn("peers did not finish in time, continuing solo", "level", e.level)
			s.phase = PhaseTransitioningLocal
		}
		return s.advance()

	case titleElapsed:
		if e.level != s.level || s.phase != PhaseTitleDelay {
			return false
		}
		s.phase = PhasePlaying
	}
	return false
}

// advance moves to the next level, or to PhaseFinished after the final one.
func (s *Sync) advance() bool {
	if s.level >= s.cfg.FinalLevel {
		s.phase = PhaseFinished
		s.logger.Info("final level completed", "level", s.level)
		return false
	}
	s.advances++
	s.load(s.level + 1)
	return true
}

func (s *Sync) load(n int) {
	m, err := s.loader.Load(n)
	if err != nil {
		s.logger.Error("level load failed", "level", n, "error", err)
	}
	if m == nil {
		m = level.DefaultMap()
	}
	s.level = n
	s.levelMap = m
	s.notified = false
	s.waiting = false
	s.phase = PhaseTitleDelay

	s.after(s.cfg.TitleDelay, func() {
		s.events <- titleElapsed{level: n}
	})
}
