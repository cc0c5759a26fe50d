package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tiltmaze/internal/completion"
	"github.com/vovakirdan/tiltmaze/internal/config"
	"github.com/vovakirdan/tiltmaze/internal/highscore"
	"github.com/vovakirdan/tiltmaze/internal/netsync"
	"github.com/vovakirdan/tiltmaze/internal/platform/tui"
	"github.com/vovakirdan/tiltmaze/internal/sim"
	"github.com/vovakirdan/tiltmaze/internal/tilt"
)

var (
	flagPlayers     int
	flagLevel       int
	flagMultiplayer bool
	flagGroup       string
	flagNoTilt      bool
	flagUser        string
	flagSeed        int64
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play tiltmaze",
	Long: `Start a local game.

Controls:
  Arrows     - Move player 1
  WASD       - Move player 2 (player 1 when playing alone)
  P/Esc      - Pause
  Ctrl+S     - Save a screenshot
  Q/Ctrl+C   - Quit

Tilt controllers stream to tilt.ports (one per player). Use --no-tilt to
skip opening them.

With --multiplayer the game joins a group on the sync server; reaching a
goal then waits until every member of the group has finished the level.

Examples:
  tiltmaze play
  tiltmaze play --players 2 --no-tilt
  tiltmaze play --level 2
  tiltmaze play --multiplayer --group friday`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().IntVar(&flagPlayers, "players", 0, "Local players, 1 or 2 (default from config)")
	playCmd.Flags().IntVar(&flagLevel, "level", 0, "Level to start on (default from config)")
	playCmd.Flags().BoolVar(&flagMultiplayer, "multiplayer", false, "Synchronise level completion with a group")
	playCmd.Flags().StringVar(&flagGroup, "group", "", "Group to join with --multiplayer")
	playCmd.Flags().BoolVar(&flagNoTilt, "no-tilt", false, "Do not open the tilt controller ports")
	playCmd.Flags().StringVar(&flagUser, "user", "", "Username for highscores (default from config)")
	playCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed for power-ups (0 = random based on time)")
}

func runPlay(cmd *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyPlayFlags(cmd, &cfg)

	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		if w < tui.MinWidth || h < tui.MinHeight {
			fmt.Fprintf(os.Stderr, "Error: terminal is %dx%d, need at least %dx%d\n", w, h, tui.MinWidth, tui.MinHeight)
			os.Exit(1)
		}
	}

	logFile, err := openLogFile(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := newLogger(cfg.Log, logFile, "tiltmaze")

	if err := play(cmd.Context(), cfg, logger); err != nil {
		logger.Error("game ended with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func applyPlayFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("players") {
		cfg.Game.Players = max(1, min(flagPlayers, sim.MaxPlayers))
	}
	if flags.Changed("level") && flagLevel > 0 {
		cfg.Game.StartLevel = flagLevel
		cfg.Game.FinalLevel = max(cfg.Game.FinalLevel, flagLevel)
	}
	if flags.Changed("multiplayer") {
		cfg.Backend.Multiplayer = flagMultiplayer
	}
	if flagGroup != "" {
		cfg.Backend.Group = flagGroup
	}
	if flagNoTilt {
		cfg.Tilt.Enabled = false
	}
	if flagUser != "" {
		cfg.Player.Username = flagUser
	}
	if flags.Changed("seed") {
		cfg.Game.Seed = flagSeed
	}
}

func play(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loader, err := newLevelLoader(cfg.Levels, logger.WithPrefix("levels"))
	if err != nil {
		return err
	}

	tilts := openTiltChannels(ctx, cfg, logger.WithPrefix("tilt"))

	var peers completion.PeerSync
	if cfg.Backend.Multiplayer {
		if client := dialSync(ctx, cfg, logger.WithPrefix("sync")); client != nil {
			defer client.Close()
			peers = client
		}
	}

	progress := completion.New(completion.Config{
		Username:      cfg.Player.Username,
		FinalLevel:    cfg.Game.FinalLevel,
		TitleDelay:    cfg.Game.TitleDelay,
		ReportTimeout: cfg.Backend.DialTimeout + time.Second,
	}, completion.Options{
		Loader: loader,
		Scores: highscore.NewClient(cfg.Backend.ScoreAddr, cfg.Backend.DialTimeout),
		Peers:  peers,
		Logger: logger.WithPrefix("progress"),
	})

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	session := sim.NewSession(sim.Config{
		Players:       cfg.Game.Players,
		Names:         []string{cfg.Player.Username},
		TiltThreshold: cfg.Tilt.Threshold,
		PowerUps:      powerUpConfig(cfg),
		Seed:          seed,
	}, progress, tilts, logger)
	defer session.Close()
	session.Start(cfg.Game.StartLevel)

	var shots string
	if home, homeErr := os.UserHomeDir(); homeErr == nil {
		shots = filepath.Join(home, ".tiltmaze", "screenshots")
	}
	return tui.Run(session, tui.GameOptions{
		TickRate:      cfg.Game.TickRate,
		Players:       cfg.Game.Players,
		ScreenshotDir: shots,
	})
}

// openTiltChannels starts one channel per local player. A port that cannot
// be bound leaves that player on keyboard only.
func openTiltChannels(ctx context.Context, cfg config.Config, logger *log.Logger) []sim.TiltSource {
	if !cfg.Tilt.Enabled {
		return nil
	}
	tilts := make([]sim.TiltSource, cfg.Game.Players)
	for i := range tilts {
		if i >= len(cfg.Tilt.Ports) {
			break
		}
		addr := net.JoinHostPort(cfg.Tilt.Host, strconv.Itoa(cfg.Tilt.Ports[i]))
		ch := tilt.New(addr, logger)
		if err := ch.Start(ctx); err != nil {
			logger.Error("tilt channel unavailable", "player", i+1, "addr", addr, "error", err)
			continue
		}
		logger.Info("tilt channel listening", "player", i+1, "addr", ch.Addr())
		tilts[i] = ch
	}
	return tilts
}

// dialSync joins the configured group. Failure to connect falls back to
// solo progression.
func dialSync(ctx context.Context, cfg config.Config, logger *log.Logger) *netsync.Client {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Backend.DialTimeout)
	defer cancel()

	client, err := netsync.Dial(dialCtx, cfg.Backend.SyncURL, netsync.ClientOptions{
		PlayerID:    cfg.Player.Username,
		Group:       cfg.Backend.Group,
		WaitTimeout: cfg.Backend.WaitTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Warn("cannot reach sync server, playing solo", "url", cfg.Backend.SyncURL, "error", err)
		return nil
	}
	logger.Info("joined group", "group", client.Group(), "level", client.CurrentLevel())
	return client
}
