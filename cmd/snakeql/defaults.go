package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snake-qlearn/internal/config"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default configuration",
	Long: `Prints the built-in YAML configuration.

Save it as ~/.snakeql/config.yaml or ./configs/snakeql.yaml and edit it
to change the board, rewards or agent hyperparameters.

Examples:
  snakeql defaults > ~/.snakeql/config.yaml`,
	Args: cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		os.Stdout.Write(config.GetDefaultYAML())
	},
}
