package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewplan/crewplan/internal/tui"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Launch the interactive admin console",
	RunE:  runConsole,
}

func runConsole(cmd *cobra.Command, args []string) error {
	app := tui.New(apiAddr)
	if err := app.Run(); err != nil {
		return fmt.Errorf("console error: %w", err)
	}
	return nil
}
