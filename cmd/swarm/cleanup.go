package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cleanupOlderThan time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge old terminal job records",
	Long: `Cleanup deletes terminal job records older than the retention
window. Pending, running, and checkpointed jobs are never touched;
this is the only path that destroys job records.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 7*24*time.Hour, "retention window for terminal jobs")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	purged, err := db.PurgeTerminalJobs(cleanupOlderThan)
	if err != nil {
		return err
	}
	fmt.Printf("%s purged %d job record(s) older than %s\n",
		color.GreenString("✓"), purged, cleanupOlderThan)
	return nil
}
