package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tiltmaze/internal/level"
)

var flagValidate bool

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List levels",
	Long: `List the levels found in levels.dir (or the built-in levels).

With --validate every level is parsed and its warnings are printed; the
command fails if a level is incomplete or has no goal.

Examples:
  tiltmaze levels
  tiltmaze levels --validate
  tiltmaze levels --validate --config ./my-levels.yaml`,
	Run: runLevels,
}

func init() {
	levelsCmd.Flags().BoolVar(&flagValidate, "validate", false, "Parse every level and report problems")
}

func runLevels(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	loader, err := newLevelLoader(cfg.Levels, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	nums, err := loader.Levels()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing levels: %v\n", err)
		os.Exit(1)
	}
	if len(nums) == 0 {
		fmt.Println("No levels found.")
		return
	}

	fmt.Printf("  %-5s  %-6s  %-5s  %-7s  %s\n", "Level", "Coins", "Goal", "Hazards", "Title")
	fmt.Printf("  %-5s  %-6s  %-5s  %-7s  %s\n", "-----", "-----", "----", "-------", "-----")

	failed := 0
	for _, n := range nums {
		m, loadErr := loader.Load(n)
		title := strings.ReplaceAll(m.Title, "\n", " / ")
		fmt.Printf("  %-5d  %-6d  %-5d  %-7d  %s\n", n, len(m.Coins), len(m.GoalTiles()), len(m.Hazards), title)

		if !flagValidate {
			continue
		}
		for _, w := range m.Warnings {
			fmt.Printf("         warning: %v\n", w)
		}
		switch {
		case errors.Is(loadErr, level.ErrResourceMissing):
			fmt.Printf("         error: %v\n", loadErr)
			failed++
		case !m.Complete():
			fmt.Printf("         error: %d of 300 tiles\n", len(m.Tiles))
			failed++
		case len(m.GoalTiles()) == 0:
			fmt.Println("         error: no goal tile")
			failed++
		}
	}

	if flagValidate {
		fmt.Println()
		if failed > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d levels have errors\n", failed, len(nums))
			os.Exit(1)
		}
		fmt.Printf("All %d levels OK\n", len(nums))
	}
}
