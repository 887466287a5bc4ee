package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

var flagEpisodesLimit int

var episodesCmd = &cobra.Command{
	Use:   "episodes <run-id>",
	Short: "Show the best episodes of a run",
	Long: `Display the top episodes of a training run and its aggregate stats.
A unique prefix of the run ID is enough.

Examples:
  snakeql episodes 3f2a
  snakeql episodes 3f2a9c1e --limit 25`,
	Args: cobra.ExactArgs(1),
	Run:  runEpisodes,
}

func init() {
	episodesCmd.Flags().IntVar(&flagEpisodesLimit, "limit", 10, "Number of episodes to show")
}

func runEpisodes(_ *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	id, err := store.ResolveRunID(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'snakeql runs' to see recorded runs.")
		return
	}

	run, err := store.RunByID(id)
	if err != nil || run == nil {
		fmt.Fprintf(os.Stderr, "Error retrieving run: %v\n", err)
		return
	}

	episodes, err := store.TopEpisodes(id, flagEpisodesLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving episodes: %v\n", err)
		return
	}

	fmt.Printf("Run %s - %dx%d, seed %d, %s\n", run.ID, run.Width, run.Height, run.Seed, run.Status)
	fmt.Printf("alpha=%.3f gamma=%.3f epsilon=%.3f decay=%.4f\n", run.Alpha, run.Gamma, run.Epsilon, run.EpsilonDecay)
	fmt.Println()

	if len(episodes) == 0 {
		fmt.Println("No episodes recorded for this run.")
		return
	}

	// Print header
	fmt.Printf("  %-4s  %-7s  %-5s  %-6s  %-6s  %-8s  %-10s  %s\n",
		"Rank", "Episode", "Score", "Length", "Ticks", "Reward", "End", "Epsilon")
	fmt.Printf("  %-4s  %-7s  %-5s  %-6s  %-6s  %-8s  %-10s  %s\n",
		"----", "-------", "-----", "------", "-----", "------", "---", "-------")

	// Print episodes
	for i, e := range episodes {
		fmt.Printf("  %-4d  %-7d  %-5d  %-6d  %-6d  %-8.1f  %-10s  %.4f\n",
			i+1, e.Episode, e.Score, e.Length, e.Ticks, e.Reward, e.EndReason, e.Epsilon)
	}

	// Show aggregate stats
	stats, err := store.RunStats(id)
	if err != nil {
		return
	}
	fmt.Println()
	fmt.Printf("Episodes: %d  Best: %d  Avg score: %.2f  Avg ticks: %.1f\n",
		stats.Episodes, stats.BestScore, stats.AvgScore, stats.AvgTicks)

	reasons := make([]string, 0, len(stats.EndReasons))
	for r := range stats.EndReasons {
		reasons = append(reasons, r)
	}
	slices.Sort(reasons)
	for _, r := range reasons {
		fmt.Printf("  %-10s %d\n", r, stats.EndReasons[r])
	}
}
