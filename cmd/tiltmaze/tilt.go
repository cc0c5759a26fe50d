package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tiltmaze/internal/tilt"
)

var (
	flagFeedAddr  string
	flagFeedEvery time.Duration
)

var tiltCmd = &cobra.Command{
	Use:   "tilt",
	Short: "Tilt controller tools",
}

var tiltFeedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Forward accelerometer readings from stdin to a tilt port",
	Long: `Read accelerometer console lines from stdin and send each reading as a
tilt frame to a running game.

Lines look like:
  Accelerometer Data: X=3, Y=-14, Z=238 - raw

Lines that do not parse are skipped.

Examples:
  picocom -b 115200 /dev/ttyACM0 | tiltmaze tilt feed
  tiltmaze tilt feed --addr 127.0.0.1:5001 < recording.txt`,
	Run: runTiltFeed,
}

func init() {
	tiltFeedCmd.Flags().StringVar(&flagFeedAddr, "addr", "127.0.0.1:5000", "Tilt port of the player to steer")
	tiltFeedCmd.Flags().DurationVar(&flagFeedEvery, "interval", 0, "Delay between frames (0 = as fast as lines arrive)")
	tiltCmd.AddCommand(tiltFeedCmd)
}

func runTiltFeed(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log, os.Stderr, "tilt-feed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feeder, err := tilt.Dial(ctx, flagFeedAddr)
	if err != nil {
		logger.Error("cannot connect", "addr", flagFeedAddr, "error", err)
		os.Exit(1)
	}
	defer feeder.Close()
	logger.Info("connected", "addr", flagFeedAddr)

	var sent, skipped int
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sample, err := tilt.ParseReading(line)
		if err != nil {
			skipped++
			logger.Debug("skipping line", "error", err)
			continue
		}
		if err := feeder.Send(sample); err != nil {
			logger.Error("connection lost", "error", err)
			break
		}
		sent++
		if flagFeedEvery > 0 {
			time.Sleep(flagFeedEvery)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("reading stdin", "error", err)
	}
	logger.Info("done", "sent", sent, "skipped", skipped)
}
