package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snake-qlearn/internal/snake"
	"github.com/vovakirdan/snake-qlearn/internal/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Summarize a parquet transition trace",
	Long: `Read a trace written by 'snakeql train --trace' and print row,
episode and action counts.

Examples:
  snakeql trace ./trace.parquet`,
	Args: cobra.ExactArgs(1),
	Run:  runTrace,
}

func runTrace(_ *cobra.Command, args []string) {
	path := args[0]

	schema, err := trace.Schema(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading trace: %v\n", err)
		os.Exit(1)
	}
	if schema != trace.SchemaVersion {
		fmt.Fprintf(os.Stderr, "Error: unsupported trace schema %q\n", schema)
		os.Exit(1)
	}

	rows, err := trace.ReadAll(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading trace: %v\n", err)
		os.Exit(1)
	}

	runs := make(map[string]bool)
	episodes := make(map[string]map[int32]bool)
	var actions [len(snake.Directions)]int
	var reward float64
	terminal := 0
	for _, r := range rows {
		runs[r.RunID] = true
		if episodes[r.RunID] == nil {
			episodes[r.RunID] = make(map[int32]bool)
		}
		episodes[r.RunID][r.Episode] = true
		if r.Action >= 0 && int(r.Action) < len(actions) {
			actions[r.Action]++
		}
		reward += r.Reward
		if r.Done {
			terminal++
		}
	}

	episodeCount := 0
	for _, eps := range episodes {
		episodeCount += len(eps)
	}

	fmt.Printf("Trace %s (%s)\n", path, schema)
	fmt.Println()
	fmt.Printf("  %-12s %d\n", "Rows", len(rows))
	fmt.Printf("  %-12s %d\n", "Runs", len(runs))
	fmt.Printf("  %-12s %d\n", "Episodes", episodeCount)
	fmt.Printf("  %-12s %d\n", "Terminal", terminal)
	fmt.Printf("  %-12s %.1f\n", "Reward", reward)
	fmt.Println()
	fmt.Println("Actions:")
	for _, d := range snake.Directions {
		share := 0.0
		if len(rows) > 0 {
			share = 100 * float64(actions[d]) / float64(len(rows))
		}
		fmt.Printf("  %-6s %8d  %5.1f%%\n", d, actions[d], share)
	}
}
