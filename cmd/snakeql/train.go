package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snake-qlearn/internal/storage"
	"github.com/vovakirdan/snake-qlearn/internal/trace"
	"github.com/vovakirdan/snake-qlearn/internal/trainer"
)

var (
	flagEpisodes int
	flagWidth    int
	flagHeight   int
	flagMaxTicks int
	flagFood     int
	flagLayout   string
	flagTrace    string
	flagNoStore  bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a Q-learning agent",
	Long: `Train a fresh agent for a number of episodes and record the run.

Flags override the loaded configuration. The learned table lives only for
the duration of the run; episode results are stored in the runs database
unless --no-store is given. Press Ctrl+C to stop after the current episode.

Examples:
  snakeql train
  snakeql train --episodes 20000 --seed 7
  snakeql train --width 10 --height 10 --food 3
  snakeql train --layout box
  snakeql train --trace ./out/trace.parquet --no-store`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().IntVar(&flagEpisodes, "episodes", 0, "Number of episodes (default from config)")
	trainCmd.Flags().IntVar(&flagWidth, "width", 0, "Board width (default from config)")
	trainCmd.Flags().IntVar(&flagHeight, "height", 0, "Board height (default from config)")
	trainCmd.Flags().IntVar(&flagMaxTicks, "max-ticks", 0, "Ticks per episode, 0 = unlimited (default from config)")
	trainCmd.Flags().IntVar(&flagFood, "food", 0, "Food kept on the board (default from config)")
	trainCmd.Flags().StringVar(&flagLayout, "layout", "", "Wall layout (default from config, see 'snakeql layouts')")
	trainCmd.Flags().StringVar(&flagTrace, "trace", "", "Write every transition to this parquet file")
	trainCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "Do not record the run in the database")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("episodes") {
		cfg.Training.Episodes = flagEpisodes
	}
	if flags.Changed("width") {
		cfg.Board.Width = flagWidth
	}
	if flags.Changed("height") {
		cfg.Board.Height = flagHeight
	}
	if flags.Changed("max-ticks") {
		cfg.Training.MaxTicks = flagMaxTicks
	}
	if flags.Changed("food") {
		cfg.Board.FoodCount = flagFood
	}
	if flags.Changed("layout") {
		cfg.Board.Layout = flagLayout
	}
	if flags.Changed("trace") {
		cfg.Storage.TracePath = flagTrace
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var sinks trainer.Sinks

	if !flagNoStore {
		store, err := storage.Open(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("error opening runs database: %w", err)
		}
		defer store.Close()
		sinks.Results = store
	}

	var tw *trace.Writer
	if cfg.Storage.TracePath != "" {
		tw, err = trace.Create(cfg.Storage.TracePath)
		if err != nil {
			return err
		}
		sinks.Trace = tw
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, runErr := trainer.Run(ctx, cfg, trainer.Options{
		Seed:   resolveSeed(),
		Logger: logger,
	}, sinks)

	if tw != nil {
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			_ = tw.Abort()
		} else if err := tw.Close(); err != nil {
			logger.Error("could not write trace", "path", tw.Path(), "error", err)
		} else {
			logger.Info("trace written", "path", tw.Path(), "rows", tw.Rows())
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	printSummary(sum)
	return nil
}

func printSummary(sum trainer.Summary) {
	fmt.Println()
	fmt.Printf("Run %s (%s)\n", sum.RunID, sum.Status)
	fmt.Println()
	fmt.Printf("  %-14s %d\n", "Seed", sum.Seed)
	fmt.Printf("  %-14s %d\n", "Episodes", sum.Episodes)
	fmt.Printf("  %-14s %d (episode %d)\n", "Best score", sum.BestScore, sum.BestEpisode)
	fmt.Printf("  %-14s %.2f\n", "Mean score", sum.MeanScore)
	fmt.Printf("  %-14s %d\n", "Total ticks", sum.TotalTicks)
	fmt.Printf("  %-14s %d\n", "Table entries", sum.TableSize)
	fmt.Printf("  %-14s %.4f\n", "Final epsilon", sum.FinalEpsilon)
	fmt.Printf("  %-14s %s\n", "Elapsed", sum.Duration.Round(time.Millisecond))
	if !flagNoStore {
		fmt.Println()
		fmt.Printf("Run 'snakeql episodes %s' to see the best episodes.\n", shortID(sum.RunID))
	}
}

// shortID returns the first 8 characters of a run ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
