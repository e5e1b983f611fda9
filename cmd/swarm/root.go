package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Recursive agent job orchestration engine",
	Long: `Swarm schedules recursively spawned agent jobs against per-depth
concurrency budgets, with durable pollable results, adaptive timeouts,
and checkpoint/resume.

Jobs are fire-and-forget: spawn returns an id immediately, the engine
drives the job through its mode's stage pipeline, and results are
collected later by id, parent, or tag. Running jobs may spawn children
one depth lower; budgets never increase with depth, so recursive
fan-out stays bounded.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the layered configuration for a command invocation.
func loadConfig() (*config.Config, error) {
	return config.Load()
}
