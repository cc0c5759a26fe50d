// tiltmaze is a tile maze game for the terminal: steer with the keyboard or
// a tilt controller, collect coins for power-ups, dodge hazards and reach
// the goal.
//
// Usage:
//
//	tiltmaze play            - Play locally (one or two players)
//	tiltmaze serve           - Run the highscore and level-sync backends
//	tiltmaze ssh             - Host the game over SSH
//	tiltmaze scores          - Show highscores
//	tiltmaze levels          - List levels and parser warnings
//	tiltmaze tilt feed       - Forward accelerometer readings to a tilt port
//
// Global flags:
//
//	--config <path>     - Config file (default search: ~/.tiltmaze/config.yaml, ./configs/tiltmaze.yaml)
//	--log-level <lvl>   - Override log.level
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tiltmaze/internal/config"
	"github.com/vovakirdan/tiltmaze/internal/level"
	"github.com/vovakirdan/tiltmaze/internal/powerup"
)

var (
	// Global flags
	flagConfig   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tiltmaze",
	Short: "Tiltmaze - a tilt-controlled maze game for your terminal",
	Long: `Tiltmaze is a tile maze game. Steer with the arrow keys (or WASD for a
second player), or with an accelerometer streaming to the tilt ports.
Collect every coin, avoid the hazards and reach the green goal.

Available commands:
  play     - Play locally
  serve    - Run the highscore and level-sync backends
  ssh      - Host the game over SSH
  scores   - View highscores
  levels   - List levels and check them for errors
  tilt     - Tilt controller tools

Examples:
  tiltmaze play
  tiltmaze play --players 2 --no-tilt
  tiltmaze play --multiplayer --group friday
  tiltmaze serve
  tiltmaze scores --tui`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sshCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(tiltCmd)
}

// loadConfig loads the configuration and applies global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

// newLogger builds a logger writing to w with the configured level and format.
func newLogger(cfg config.LogConfig, w io.Writer, prefix string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	if lvl, err := log.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(lvl)
	}
	switch cfg.Format {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	}
	return logger
}

// openLogFile opens log.file for appending. The TUI owns the terminal, so
// interactive commands log there instead of stderr.
func openLogFile(cfg config.LogConfig) (io.WriteCloser, error) {
	if cfg.File == "" {
		return nopCloser{io.Discard}, nil
	}
	path, err := config.ExpandHome(cfg.File)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// newLevelLoader returns a loader over levels.dir, or the embedded levels.
func newLevelLoader(cfg config.LevelsConfig, logger *log.Logger) (*level.Loader, error) {
	if cfg.Dir == "" {
		return level.NewLoader(nil, logger), nil
	}
	dir, err := config.ExpandHome(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return level.NewLoader(level.Dir(dir), logger), nil
}

func powerUpConfig(cfg config.Config) powerup.Config {
	return powerup.Config{
		Duration:        cfg.PowerUps.Duration,
		MessageDuration: cfg.PowerUps.MessageDuration,
		MoveStep:        cfg.Player.MoveStep,
		BoostStep:       cfg.Player.BoostStep,
		SlowHazardSpeed: cfg.PowerUps.SlowHazardSpeed,
		BaseHazardSpeed: cfg.PowerUps.BaseHazardSpeed,
	}
}

func expandOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return config.ExpandHome(path)
}
