package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snake-qlearn/internal/storage"
)

var flagRunsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent training runs",
	Long: `Display the most recent training runs, newest first.

Examples:
  snakeql runs
  snakeql runs --limit 50
  snakeql runs rm 3f2a`,
	Args: cobra.NoArgs,
	Run:  runRuns,
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>",
	Short: "Delete a run and its episodes",
	Args:  cobra.ExactArgs(1),
	Run:   runRunsRm,
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "Number of runs to show")
	runsCmd.AddCommand(runsRmCmd)
}

func openStore() *storage.Store {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening runs database: %v\n", err)
		os.Exit(1)
	}
	return store
}

func runRuns(_ *cobra.Command, _ []string) {
	store := openStore()
	defer store.Close()

	runs, err := store.RecentRuns(flagRunsLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving runs: %v\n", err)
		return
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println()
		fmt.Println("Run 'snakeql train' to start the first one.")
		return
	}

	fmt.Println("Recent runs:")
	fmt.Println()

	// Print header
	fmt.Printf("  %-8s  %-16s  %-9s  %-7s  %-8s  %-5s  %-6s  %s\n",
		"ID", "Date", "Status", "Board", "Episodes", "Best", "Mean", "States")
	fmt.Printf("  %-8s  %-16s  %-9s  %-7s  %-8s  %-5s  %-6s  %s\n",
		"--", "----", "------", "-----", "--------", "----", "----", "------")

	// Print runs
	for _, r := range runs {
		board := fmt.Sprintf("%dx%d", r.Width, r.Height)
		fmt.Printf("  %-8s  %-16s  %-9s  %-7s  %-8d  %-5d  %-6.2f  %d\n",
			shortID(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Status,
			board,
			r.EpisodesPlayed,
			r.BestScore,
			r.MeanScore,
			r.TableSize,
		)
	}

	fmt.Println()
	fmt.Println("Run 'snakeql episodes <id>' to see a run's best episodes.")
}

func runRunsRm(_ *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	id, err := store.ResolveRunID(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if err := store.DeleteRun(id); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting run: %v\n", err)
		return
	}
	fmt.Printf("Deleted run %s\n", id)
}
