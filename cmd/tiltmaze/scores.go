package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tiltmaze/internal/platform/tui"
)

var (
	flagScoresTUI   bool
	flagScoresLimit int
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show highscores",
	Long: `Display the best players, fewest deaths first.

With --tui an interactive scoreboard opens that also lists the group
level barriers released by the sync server.

Examples:
  tiltmaze scores
  tiltmaze scores --limit 25
  tiltmaze scores --tui`,
	Run: runScores,
}

func init() {
	scoresCmd.Flags().BoolVar(&flagScoresTUI, "tui", false, "Open the interactive scoreboard")
	scoresCmd.Flags().IntVar(&flagScoresLimit, "limit", 10, "Number of players to list")
	addStoreFlags(scoresCmd)
}

func runScores(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyStoreFlags(&cfg.Server)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg.Server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening scores database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if flagScoresTUI {
		width, height := 80, 24 // Defaults
		if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
			width, height = w, h
		}
		if err := tui.RunScoreboard(store, width, height); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return
	}

	scores, err := store.TopHighscores(ctx, flagScoresLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving scores: %v\n", err)
		return
	}

	fmt.Println("Highscores (fewest deaths)")
	fmt.Println()

	if len(scores) == 0 {
		fmt.Println("No highscores recorded yet.")
		fmt.Println()
		fmt.Println("Finish the last level of 'tiltmaze play' to set the first one!")
		return
	}

	fmt.Printf("  %-4s  %-16s  %-6s  %s\n", "Rank", "Player", "Deaths", "Date")
	fmt.Printf("  %-4s  %-16s  %-6s  %s\n", "----", "------", "------", "----")
	for i, entry := range scores {
		fmt.Printf("  %-4d  %-16s  %-6d  %s\n", i+1, entry.Player, entry.Deaths, entry.UpdatedAt.Format("2006-01-02 15:04"))
	}
}
