package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarm/internal/orchestrator"
	"github.com/ShayCichocki/swarm/pkg/models"
)

var (
	spawnMode    string
	spawnTimeout time.Duration
	spawnOutput  string
	spawnTags    []string
	spawnNoWait  bool
)

var spawnCmd = &cobra.Command{
	Use:   "spawn <task> [task...]",
	Short: "Spawn one or more agent jobs",
	Long: `Spawn creates a job per task argument and prints the job ids
immediately. The engine then runs the jobs in this process until they
finish; pass --no-wait to only record them, leaving execution to the
next engine process.

The execution mode is selected from task keywords unless --mode forces
one. Results are retrieved later with 'swarm results <id>'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpawn,
}

func init() {
	spawnCmd.Flags().StringVar(&spawnMode, "mode", "", "force an execution mode instead of keyword selection")
	spawnCmd.Flags().DurationVar(&spawnTimeout, "timeout", 0, "override the adaptive job deadline")
	spawnCmd.Flags().StringVar(&spawnOutput, "output", "", "write the result payload to this file under the output directory (single task only)")
	spawnCmd.Flags().StringArrayVar(&spawnTags, "tag", nil, "label the job for later filtering (repeatable)")
	spawnCmd.Flags().BoolVar(&spawnNoWait, "no-wait", false, "record the jobs and exit without executing them")
}

func runSpawn(cmd *cobra.Command, args []string) error {
	if spawnOutput != "" && len(args) > 1 {
		return fmt.Errorf("--output applies to a single task, got %d", len(args))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	executor, err := createExecutor(cfg)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg, executor, !spawnNoWait)
	if err != nil {
		return err
	}
	defer eng.Close()

	ids := make([]string, 0, len(args))
	for _, task := range args {
		id, err := eng.orch.Spawn(orchestrator.SpawnRequest{
			Task:      task,
			Mode:      models.Mode(spawnMode),
			Timeout:   spawnTimeout,
			OutputRef: spawnOutput,
			Tags:      spawnTags,
		})
		if err != nil {
			return fmt.Errorf("spawn %q: %w", task, err)
		}
		ids = append(ids, id)
		fmt.Printf("%s %s\n", color.GreenString("spawned"), id)
	}

	if spawnNoWait {
		fmt.Printf("%d job(s) recorded; they run with the next engine process\n", len(ids))
		return nil
	}

	return waitForJobs(eng, ids)
}

// waitForJobs polls until every listed job is terminal, reporting each as it
// finishes.
func waitForJobs(eng *engine, ids []string) error {
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	failures := 0
	for len(pending) > 0 {
		<-ticker.C
		for id := range pending {
			info, err := eng.orch.Status(id)
			if err != nil {
				return err
			}
			if !info.Status.Terminal() {
				continue
			}
			delete(pending, id)
			printTerminal(id, info)
			if info.Status != models.JobStatusCompleted {
				failures++
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d job(s) did not complete", failures, len(ids))
	}
	return nil
}

func printTerminal(id string, info orchestrator.StatusInfo) {
	switch info.Status {
	case models.JobStatusCompleted:
		fmt.Printf("%s %s (%s)\n", color.GreenString("completed"), id, info.Elapsed.Truncate(time.Millisecond))
	case models.JobStatusTimedOut:
		fmt.Printf("%s %s: %s\n", color.YellowString("timed out"), id, info.Reason)
	case models.JobStatusKilled:
		fmt.Printf("%s %s\n", color.YellowString("killed"), id)
	default:
		fmt.Printf("%s %s: %s\n", color.RedString("failed"), id, info.Reason)
	}
}
