package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snake-qlearn/internal/layout"
)

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "List available wall layouts",
	Long:  `Shows the named wall layouts that can be set as board.layout or passed to train --layout.`,
	Args:  cobra.NoArgs,
	Run:   runLayouts,
}

func runLayouts(cmd *cobra.Command, args []string) {
	layouts := layout.List()

	if len(layouts) == 0 {
		fmt.Println("No layouts available.")
		return
	}

	fmt.Println("Available layouts:")
	fmt.Println()

	// Calculate column widths
	maxIDLen := 2 // "ID" header
	for _, l := range layouts {
		if len(l.ID) > maxIDLen {
			maxIDLen = len(l.ID)
		}
	}

	// Print header
	fmt.Printf("  %-*s  %s\n", maxIDLen, "ID", "Description")
	fmt.Printf("  %-*s  %s\n", maxIDLen, "--", "-----------")

	// Print layouts
	for _, l := range layouts {
		fmt.Printf("  %-*s  %s\n", maxIDLen, l.ID, l.Title)
	}

	fmt.Println()
	fmt.Println("Run 'snakeql train --layout <id>' to train on a layout.")
}
