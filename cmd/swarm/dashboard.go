package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/tui"
)

var (
	dashboardOnce     bool
	dashboardInterval time.Duration
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live view of active jobs and per-depth slot utilization",
	Long: `Dashboard shows active job counts by status, slot utilization at
every depth, the error rate over finished jobs, and a scrollable job
table. Interrupted jobs from previous processes are resumed while the
dashboard runs. Use --once for a single plain-text snapshot.`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardOnce, "once", false, "print one snapshot and exit")
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", time.Second, "poll interval")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if dashboardOnce {
		eng, err := buildEngine(cfg, inertExecutor, false)
		if err != nil {
			return err
		}
		defer eng.Close()

		frame, err := tui.Snapshot(eng.orch)
		if err != nil {
			return err
		}
		fmt.Println(frame)
		return nil
	}

	// The live dashboard doubles as an engine process: it picks up and
	// executes jobs recorded by 'spawn --no-wait' and interrupted runs.
	executor, err := createExecutor(cfg)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg, executor, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	return tui.Run(eng.orch, dashboardInterval)
}
