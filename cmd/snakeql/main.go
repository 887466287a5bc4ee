// snakeql trains a tabular Q-learning agent to play snake on a toroidal grid.
//
// Usage:
//
//	snakeql train                 - Train an agent and record the run
//	snakeql runs                  - List recent training runs
//	snakeql runs rm <run-id>      - Delete a run and its episodes
//	snakeql episodes <run-id>     - Show the best episodes of a run
//	snakeql trace <file>          - Summarize a parquet transition trace
//	snakeql layouts               - List wall layouts
//	snakeql defaults              - Print the default configuration
//
// Global flags:
//
//	--config <path>     - Config file (default search: ~/.snakeql/config.yaml, ./configs/snakeql.yaml)
//	--seed <value>      - RNG seed for reproducible training (0 = time based)
//	--db <path>         - Runs database path (default from config: ~/.snakeql/runs.db)
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/snake-qlearn/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagSeed     uint64
	flagDBPath   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snakeql",
	Short: "snakeql - Q-learning snake trainer",
	Long: `snakeql trains a tabular Q-learning agent to play snake on a
wraparound grid and keeps a history of training runs.

Available commands:
  train     - Train an agent
  runs      - List recent runs
  episodes  - Show the best episodes of a run
  trace     - Summarize a transition trace file
  layouts   - List wall layouts
  defaults  - Print the default configuration

Examples:
  snakeql train --episodes 5000 --seed 42
  snakeql train --width 12 --height 12 --trace ./trace.parquet
  snakeql runs
  snakeql episodes 3f2a`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file")
	rootCmd.PersistentFlags().Uint64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to runs database (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(episodesCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(layoutsCmd)
	rootCmd.AddCommand(defaultsCmd)
}

// newLogger builds the stderr logger. Output is JSON when stderr is not a terminal.
func newLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", flagLogLevel, err)
	}

	opts := log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "snakeql",
		Level:           level,
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		opts.Formatter = log.JSONFormatter
	}
	return log.NewWithOptions(os.Stderr, opts), nil
}

// loadConfig loads the config named by --config or found on the search path.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagDBPath != "" {
		cfg.Storage.DBPath = flagDBPath
	}
	return cfg, nil
}

// resolveSeed returns --seed, or a time based seed when it is 0.
func resolveSeed() uint64 {
	if flagSeed != 0 {
		return flagSeed
	}
	return uint64(time.Now().UnixNano())
}
