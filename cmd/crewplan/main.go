package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crewplan",
	Short: "Crewplan - project resource planning CLI",
	Long:  `Crewplan tracks resources, tasks, sprints, and assignments, and computes availability, load, and fit analytics through a local daemon.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7467", "API server address")

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(resourceCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(sprintCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
